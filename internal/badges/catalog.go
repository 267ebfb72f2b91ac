package badges

import (
	"fmt"
	"strings"

	"promptvault/internal/models"
)

// Definition describes one badge. Criteria unlocks level 1; Levels, when present,
// hold the thresholds for level 2 onwards and share Criteria's kind.
type Definition struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Icon        string      `json:"icon"`
	Tier        models.Tier `json:"tier"`
	Criteria    Criteria    `json:"criteria"`
	Levels      []Criteria  `json:"levels,omitempty"`
}

// Leveled reports whether the badge upgrades rather than unlocking once.
func (d Definition) Leveled() bool {
	return len(d.Levels) > 0
}

// MaxLevel is the highest level the badge can reach.
func (d Definition) MaxLevel() int {
	return 1 + len(d.Levels)
}

// LevelCriteria returns the criteria for a 1-based level.
func (d Definition) LevelCriteria(level int) (Criteria, bool) {
	switch {
	case level == 1:
		return d.Criteria, true
	case level >= 2 && level <= d.MaxLevel():
		return d.Levels[level-2], true
	default:
		return nil, false
	}
}

// SatisfiedLevel returns the highest consecutive level the stats satisfy, 0 when
// even level 1 is not met.
func (d Definition) SatisfiedLevel(s *models.UserStats) (int, error) {
	level := 0
	for l := 1; l <= d.MaxLevel(); l++ {
		c, _ := d.LevelCriteria(l)
		ok, err := Evaluate(c, s)
		if err != nil {
			return 0, fmt.Errorf("badge %s level %d: %w", d.ID, l, err)
		}
		if !ok {
			break
		}
		level = l
	}
	return level, nil
}

// Validate checks the definition in isolation.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("badge id is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("badge %s: name is required", d.ID)
	}
	if !d.Tier.Valid() {
		return fmt.Errorf("badge %s: unknown tier %q", d.ID, d.Tier)
	}
	if d.Criteria == nil {
		return fmt.Errorf("badge %s: %w", d.ID, ErrUnknownCriteria)
	}
	if err := d.Criteria.Validate(); err != nil {
		return fmt.Errorf("badge %s: %w", d.ID, err)
	}
	for i, lc := range d.Levels {
		if lc == nil {
			return fmt.Errorf("badge %s level %d: %w", d.ID, i+2, ErrUnknownCriteria)
		}
		if lc.Kind() != d.Criteria.Kind() {
			return fmt.Errorf("badge %s level %d: kind %s does not match %s", d.ID, i+2, lc.Kind(), d.Criteria.Kind())
		}
		if err := lc.Validate(); err != nil {
			return fmt.Errorf("badge %s level %d: %w", d.ID, i+2, err)
		}
	}
	return nil
}

// Catalog is the immutable, ordered set of badge definitions.
type Catalog struct {
	defs []Definition
	byID map[string]int
}

// NewCatalog validates defs and builds a catalog. Duplicate ids or unresolvable
// criteria are configuration errors.
func NewCatalog(defs []Definition) (*Catalog, error) {
	c := &Catalog{
		defs: make([]Definition, 0, len(defs)),
		byID: make(map[string]int, len(defs)),
	}

	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("badge catalog: %w", err)
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("badge catalog: duplicate badge id %q", d.ID)
		}
		d.Levels = append([]Criteria(nil), d.Levels...)
		c.byID[d.ID] = len(c.defs)
		c.defs = append(c.defs, d)
	}

	return c, nil
}

// All returns the definitions in catalog order.
func (c *Catalog) All() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Get looks up a definition by id.
func (c *Catalog) Get(id string) (Definition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	return len(c.defs)
}
