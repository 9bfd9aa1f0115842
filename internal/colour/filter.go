package colour

import "strings"

// Filter returns the colours whose hex value contains query, ignoring case.
// An empty query matches everything.
func Filter(colours []WeightedColour, query string) []WeightedColour {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return colours
	}

	out := make([]WeightedColour, 0, len(colours))
	for _, c := range colours {
		if strings.Contains(strings.ToLower(string(c.Color)), q) {
			out = append(out, c)
		}
	}
	return out
}

// ByRole returns the colours that p classifies as role. An empty role matches
// every colour.
func ByRole(colours []WeightedColour, p ClassifiedPalette, role Role) []WeightedColour {
	if role == "" {
		return colours
	}

	out := make([]WeightedColour, 0, len(colours))
	for _, c := range colours {
		if p.RoleOf(c.Color) == role {
			out = append(out, c)
		}
	}
	return out
}
