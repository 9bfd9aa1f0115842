package colour

import "fmt"

// CollapsePolicy controls how near-duplicate colours are merged.
type CollapsePolicy struct {
	// Threshold is the Euclidean RGB distance below which two colours are
	// considered the same.
	Threshold float64 `yaml:"threshold" json:"threshold"`

	// Limit caps the number of colours returned.
	Limit int `yaml:"limit" json:"limit"`
}

var (
	// ExtractionPolicy is applied when a palette is extracted from a page.
	ExtractionPolicy = CollapsePolicy{Threshold: 20, Limit: 15}

	// PanelPolicy is the coarser policy used before classification.
	PanelPolicy = CollapsePolicy{Threshold: 30, Limit: 10}
)

// Validate checks the policy is usable.
func (p CollapsePolicy) Validate() error {
	if p.Threshold < 0 {
		return fmt.Errorf("collapse threshold must be non-negative, got %v", p.Threshold)
	}
	if p.Limit < 1 {
		return fmt.Errorf("collapse limit must be at least 1, got %d", p.Limit)
	}
	return nil
}

// Collapse merges colours closer than the policy threshold in a single greedy
// pass. When a candidate matches an accepted colour the heavier of the two is
// kept in the accepted colour's position, unless the heavier candidate would
// itself sit within the threshold of another accepted colour. The result is
// re-sorted by weight and truncated to the policy limit.
//
// Every pair of returned colours is at least Threshold apart.
func Collapse(colours []WeightedColour, policy CollapsePolicy) []WeightedColour {
	accepted := make([]WeightedColour, 0, len(colours))

	for _, candidate := range colours {
		rgb := candidate.Color.RGB()
		match := -1
		for i, existing := range accepted {
			if Distance(rgb, existing.Color.RGB()) < policy.Threshold {
				match = i
				break
			}
		}

		switch {
		case match < 0:
			accepted = append(accepted, candidate)
		case candidate.Weight > accepted[match].Weight && !nearAny(rgb, accepted, match, policy.Threshold):
			accepted[match] = candidate
		}
	}

	sortByWeight(accepted)

	if policy.Limit > 0 && len(accepted) > policy.Limit {
		accepted = accepted[:policy.Limit]
	}
	return accepted
}

// nearAny reports whether rgb is within threshold of any accepted colour
// other than the one at skip.
func nearAny(rgb RGB, accepted []WeightedColour, skip int, threshold float64) bool {
	for i, c := range accepted {
		if i != skip && Distance(rgb, c.Color.RGB()) < threshold {
			return true
		}
	}
	return false
}
