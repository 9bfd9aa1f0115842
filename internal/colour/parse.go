package colour

import (
	"fmt"
	"math"
	"strings"

	"github.com/mazznoer/csscolorparser"
)

// CSSColour is a parsed CSS colour value with straight alpha in [0,1].
type CSSColour struct {
	RGB
	Alpha float64
}

// Transparent reports whether the colour is fully transparent.
func (c CSSColour) Transparent() bool {
	return c.Alpha <= 0
}

// ParseCSS parses a resolved CSS colour value: hex notation, the colour
// functions, named colours and "transparent". Custom property references
// must be resolved before calling.
func ParseCSS(value string) (CSSColour, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return CSSColour{}, fmt.Errorf("empty colour value")
	}

	c, err := csscolorparser.Parse(v)
	if err != nil {
		return CSSColour{}, fmt.Errorf("invalid colour %q: %w", value, err)
	}
	return fromParsed(c), nil
}

func fromParsed(c csscolorparser.Color) CSSColour {
	return CSSColour{
		RGB: RGB{
			R: clampChannel(c.R * 255),
			G: clampChannel(c.G * 255),
			B: clampChannel(c.B * 255),
		},
		Alpha: clampUnit(c.A),
	}
}

func clampChannel(f float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(255, f))))
}

func clampUnit(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}
