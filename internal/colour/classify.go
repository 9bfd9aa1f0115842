package colour

// Role caps and thresholds used by Classify.
const (
	MaxPrimary   = 2
	MaxSecondary = 5
	MaxAccent    = 3

	// PrimaryShare is the percentage at or above which a colour is primary.
	PrimaryShare = 15.0

	// AccentSaturation is the saturation above which a minor colour is an accent.
	AccentSaturation = 30.0
)

// Classify assigns ranked colours to primary, accent and secondary roles.
// The input is expected in descending weight order.
func Classify(colours []WeightedColour) ClassifiedPalette {
	var p ClassifiedPalette
	if len(colours) == 0 {
		return p
	}

	taken := make([]bool, len(colours))

	for i, c := range colours {
		if len(p.Primary) == MaxPrimary {
			break
		}
		if c.Percentage >= PrimaryShare || i < MaxPrimary {
			p.Primary = append(p.Primary, c)
			taken[i] = true
		}
	}

	for i, c := range colours {
		if len(p.Accent) == MaxAccent {
			break
		}
		if taken[i] {
			continue
		}
		if Saturation(c.Color.RGB()) > AccentSaturation && c.Percentage < PrimaryShare {
			p.Accent = append(p.Accent, c)
			taken[i] = true
		}
	}

	for i, c := range colours {
		if len(p.Secondary) == MaxSecondary {
			break
		}
		if !taken[i] {
			p.Secondary = append(p.Secondary, c)
		}
	}

	return p
}

// RoleOf returns the role assigned to c in p, or "" if it is unclassified.
func (p ClassifiedPalette) RoleOf(c Hex) Role {
	for _, role := range Roles {
		for _, wc := range p.Get(role) {
			if wc.Color == c {
				return role
			}
		}
	}
	return ""
}
