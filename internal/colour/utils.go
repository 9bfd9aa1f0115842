package colour

import (
	"image/color"
	"math"
)

// Luminance calculates the relative luminance of a colour according to WCAG 2.0.
// Returns a value between 0 (darkest) and 1 (lightest).
// https://www.w3.org/TR/WCAG20/#relativeluminancedef.
func Luminance(c color.Color) float64 {
	r, g, b, _ := c.RGBA()
	// Convert from 16-bit to 8-bit.
	rf := float64(r>>8) / 255.0
	rg := float64(g>>8) / 255.0
	rb := float64(b>>8) / 255.0

	rf = gammaCorrect(rf)
	rg = gammaCorrect(rg)
	rb = gammaCorrect(rb)

	return 0.2126*rf + 0.7152*rg + 0.0722*rb
}

// gammaCorrect applies gamma correction to a colour component.
func gammaCorrect(v float64) float64 {
	if v <= 0.03928 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// ContrastRatio calculates the contrast ratio between two colours according to WCAG 2.0.
// Returns a value between 1 and 21, where 21 is maximum contrast (black vs white).
// The ratio is symmetric in its arguments.
// https://www.w3.org/TR/WCAG20/#contrast-ratiodef.
func ContrastRatio(c1, c2 color.Color) float64 {
	l1 := Luminance(c1)
	l2 := Luminance(c2)

	// Ensure l1 is the lighter colour.
	if l1 < l2 {
		l1, l2 = l2, l1
	}

	return (l1 + 0.05) / (l2 + 0.05)
}

// Level is a WCAG conformance level for a contrast ratio.
type Level string

const (
	LevelAAA     Level = "AAA"
	LevelAA      Level = "AA"
	LevelAALarge Level = "AA Large"
	LevelFail    Level = "Fail"
)

// Minimum ratios for normal and large text.
const (
	MinContrastAAA   = 7.0
	MinContrastAA    = 4.5
	MinContrastLarge = 3.0
)

// ContrastLevel maps a ratio onto the highest level it satisfies.
func ContrastLevel(ratio float64) Level {
	switch {
	case ratio >= MinContrastAAA:
		return LevelAAA
	case ratio >= MinContrastAA:
		return LevelAA
	case ratio >= MinContrastLarge:
		return LevelAALarge
	default:
		return LevelFail
	}
}

// PairResult is the outcome of checking a foreground/background pair.
type PairResult struct {
	Foreground Hex     `json:"foreground"`
	Background Hex     `json:"background"`
	Ratio      float64 `json:"ratio"`
	Level      Level   `json:"level"`
}

// CheckPair computes the contrast ratio and level for fg on bg.
func CheckPair(fg, bg Hex) PairResult {
	ratio := ContrastRatio(fg.RGB(), bg.RGB())
	return PairResult{
		Foreground: fg,
		Background: bg,
		Ratio:      ratio,
		Level:      ContrastLevel(ratio),
	}
}

// Saturation returns the HSV-style saturation of the colour as a percentage:
// (max-min)/max*100, or 0 for black.
func Saturation(rgb RGB) float64 {
	_, s, _ := rgb.Colorful().Hsv()
	return s * 100
}

// Distance returns the Euclidean distance between two colours in 0-255 RGB space.
func Distance(a, b RGB) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// Brightness returns the perceived brightness (0-255) used to choose a
// readable label colour over a swatch.
func Brightness(rgb RGB) float64 {
	return (float64(rgb.R)*299 + float64(rgb.G)*587 + float64(rgb.B)*114) / 1000
}

// LabelColour returns black or white, whichever reads better on bg.
func LabelColour(bg RGB) RGB {
	if Brightness(bg) > 128 {
		return RGB{}
	}
	return RGB{R: 255, G: 255, B: 255}
}
