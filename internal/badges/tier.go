package badges

import (
	"fmt"
	"strconv"
	"strings"

	"promptvault/internal/models"
)

// TierWeights holds the leaderboard weight of each tier, indexed by Tier.Rank.
type TierWeights [5]int

// DefaultTierWeights returns common=1, uncommon=2, rare=4, epic=8, legendary=16.
func DefaultTierWeights() TierWeights {
	return TierWeights{1, 2, 4, 8, 16}
}

// ParseTierWeights parses a comma separated list of five weights, weakest tier first.
func ParseTierWeights(raw string) (TierWeights, error) {
	var w TierWeights
	parts := strings.Split(raw, ",")
	if len(parts) != len(w) {
		return w, fmt.Errorf("tier weights: expected %d values, got %d", len(w), len(parts))
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return w, fmt.Errorf("tier weights: %q is not an integer", p)
		}
		w[i] = n
	}
	return w, w.Validate()
}

// Validate checks that every weight is positive and strictly outweighs all
// lower tiers combined.
func (w TierWeights) Validate() error {
	sum := 0
	for i, weight := range w {
		if weight <= 0 {
			return fmt.Errorf("tier weights: %s weight must be positive", models.Tiers[i])
		}
		if weight <= sum {
			return fmt.Errorf("tier weights: %s weight %d must exceed the sum of lower tiers (%d)",
				models.Tiers[i], weight, sum)
		}
		sum += weight
	}
	return nil
}

// Weight returns the weight for t, or 0 for an unknown tier.
func (w TierWeights) Weight(t models.Tier) int {
	r := t.Rank()
	if r < 0 {
		return 0
	}
	return w[r]
}

func (w TierWeights) String() string {
	parts := make([]string, len(w))
	for i, weight := range w {
		parts[i] = strconv.Itoa(weight)
	}
	return strings.Join(parts, ",")
}
