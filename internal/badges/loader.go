package badges

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"promptvault/internal/models"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

type catalogFile struct {
	Badges []badgeEntry `yaml:"badges"`
}

type badgeEntry struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Icon        string        `yaml:"icon"`
	Tier        models.Tier   `yaml:"tier"`
	Criteria    criteriaEntry `yaml:"criteria"`
	Levels      []yaml.Node   `yaml:"levels"`
}

type criteriaEntry struct {
	Type   Kind      `yaml:"type"`
	Params yaml.Node `yaml:"params"`
}

// DefaultCatalog returns the catalog bundled with the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

// LoadCatalog reads a YAML catalog from path. An empty path loads the bundled catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read badge catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog document. Unknown keys are
// rejected at every level so a misspelled threshold cannot default to zero.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := decodeStrict(data, &file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse badge catalog: %w", err)
	}
	if len(file.Badges) == 0 {
		return nil, fmt.Errorf("parse badge catalog: no badges defined")
	}

	defs := make([]Definition, 0, len(file.Badges))
	for _, e := range file.Badges {
		crit, err := decodeCriteria(e.Criteria.Type, &e.Criteria.Params)
		if err != nil {
			return nil, fmt.Errorf("badge %s: %w", e.ID, err)
		}

		levels := make([]Criteria, 0, len(e.Levels))
		for i := range e.Levels {
			lc, err := decodeCriteria(e.Criteria.Type, &e.Levels[i])
			if err != nil {
				return nil, fmt.Errorf("badge %s level %d: %w", e.ID, i+2, err)
			}
			levels = append(levels, lc)
		}

		defs = append(defs, Definition{
			ID:          e.ID,
			Name:        e.Name,
			Description: e.Description,
			Icon:        e.Icon,
			Tier:        e.Tier,
			Criteria:    crit,
			Levels:      levels,
		})
	}

	return NewCatalog(defs)
}

func decodeCriteria(kind Kind, params *yaml.Node) (Criteria, error) {
	switch kind {
	case KindDiversity:
		return decodeInto[DiversityCriteria](params)
	case KindQuality:
		return decodeInto[QualityCriteria](params)
	case KindViral:
		return decodeInto[ViralCriteria](params)
	case KindSocial:
		return decodeInto[SocialCriteria](params)
	case KindPioneer:
		return decodeInto[PioneerCriteria](params)
	case KindSpecialty:
		return decodeInto[SpecialtyCriteria](params)
	case KindCommentSocial:
		return decodeInto[CommentSocialCriteria](params)
	case KindMilestone:
		return decodeInto[MilestoneCriteria](params)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCriteria, kind)
	}
}

// decodeInto re-encodes the params node so it can go through a strict decoder;
// yaml.Node.Decode has no known-fields mode.
func decodeInto[T Criteria](node *yaml.Node) (Criteria, error) {
	var c T
	if node.Kind == 0 {
		return c, nil
	}
	raw, err := yaml.Marshal(node)
	if err != nil {
		return nil, fmt.Errorf("decode %s params: %w", c.Kind(), err)
	}
	if err := decodeStrict(raw, &c); err != nil {
		return nil, fmt.Errorf("decode %s params: %w", c.Kind(), err)
	}
	return c, nil
}

func decodeStrict(data []byte, out interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}

type criteriaJSON struct {
	Type   Kind     `json:"type"`
	Params Criteria `json:"params"`
}

// MarshalJSON tags each criteria with its kind.
func (d Definition) MarshalJSON() ([]byte, error) {
	levels := make([]criteriaJSON, 0, len(d.Levels))
	for _, l := range d.Levels {
		levels = append(levels, criteriaJSON{Type: l.Kind(), Params: l})
	}

	var crit *criteriaJSON
	if d.Criteria != nil {
		crit = &criteriaJSON{Type: d.Criteria.Kind(), Params: d.Criteria}
	}

	return json.Marshal(struct {
		ID          string         `json:"id"`
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Icon        string         `json:"icon"`
		Tier        models.Tier    `json:"tier"`
		Criteria    *criteriaJSON  `json:"criteria"`
		Levels      []criteriaJSON `json:"levels,omitempty"`
		MaxLevel    int            `json:"max_level"`
	}{d.ID, d.Name, d.Description, d.Icon, d.Tier, crit, levels, d.MaxLevel()})
}
