package colour

import "math"

// ScaleSteps is the number of entries in a tint/shade scale.
const ScaleSteps = 11

// Shade scales each channel by (1 + percent/100), clamped to [0,255]. Negative
// percentages darken, positive ones lighten. Black has no channel to scale and
// stays black.
func Shade(c Hex, percent float64) Hex {
	rgb := c.RGB()
	return RGB{
		R: shadeChannel(rgb.R, percent),
		G: shadeChannel(rgb.G, percent),
		B: shadeChannel(rgb.B, percent),
	}.Hex()
}

func shadeChannel(v uint8, percent float64) uint8 {
	f := float64(v)
	f = math.Min(255, math.Max(0, f+f*percent/100))
	return uint8(math.Floor(f + 0.5))
}

// Scale returns eleven shades of c from -100% (black) to +100%; the middle
// entry is c itself.
func Scale(c Hex) [ScaleSteps]Hex {
	var out [ScaleSteps]Hex
	for i := range out {
		factor := float64(i) / float64(ScaleSteps-1)
		out[i] = Shade(c, factor*200-100)
	}
	return out
}
