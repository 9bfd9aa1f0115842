// Package colour provides the colour model used throughout pagetint: canonical
// hex values, CSS colour parsing, WCAG contrast maths and palette construction.
package colour

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mazznoer/csscolorparser"
)

// Hex is a canonical colour in the form "#RRGGBB" (uppercase).
type Hex string

// RGB represents a color in RGB format.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// RGBA implements color.Color so RGB values can be used with image/draw.
func (rgb RGB) RGBA() (r, g, b, a uint32) {
	r = uint32(rgb.R)
	r |= r << 8
	g = uint32(rgb.G)
	g |= g << 8
	b = uint32(rgb.B)
	b |= b << 8
	return r, g, b, 0xffff
}

// String returns the RGB color as a string in the format "rgb(r, g, b)".
func (rgb RGB) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", rgb.R, rgb.G, rgb.B)
}

// Hex returns the canonical uppercase hex form of the colour.
func (rgb RGB) Hex() Hex {
	return Hex(fmt.Sprintf("#%02X%02X%02X", rgb.R, rgb.G, rgb.B))
}

// Colorful converts the colour for use with go-colorful.
func (rgb RGB) Colorful() colorful.Color {
	return colorful.Color{R: float64(rgb.R) / 255, G: float64(rgb.G) / 255, B: float64(rgb.B) / 255}
}

// ParseHex parses #RGB, #RGBA, #RRGGBB or #RRGGBBAA (the leading '#' is
// optional) and returns the colour and its alpha in [0,1].
func ParseHex(s string) (RGB, float64, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(h) {
	case 3, 4, 6, 8:
	default:
		return RGB{}, 0, fmt.Errorf("invalid hex colour length %d in %q", len(h), s)
	}
	if strings.Trim(strings.ToLower(h), "0123456789abcdef") != "" {
		return RGB{}, 0, fmt.Errorf("invalid hex colour %q", s)
	}

	c, err := csscolorparser.Parse("#" + h)
	if err != nil {
		return RGB{}, 0, fmt.Errorf("invalid hex colour %q: %w", s, err)
	}
	parsed := fromParsed(c)
	return parsed.RGB, parsed.Alpha, nil
}

// NewHex parses any hex form and returns its canonical representation.
func NewHex(s string) (Hex, error) {
	rgb, _, err := ParseHex(s)
	if err != nil {
		return "", err
	}
	return rgb.Hex(), nil
}

// MustHex is like NewHex but panics on malformed input. Intended for constants
// and tests.
func MustHex(s string) Hex {
	h, err := NewHex(s)
	if err != nil {
		panic(err)
	}
	return h
}

// RGB returns the channel values of the hex colour. Malformed values decode
// as black.
func (h Hex) RGB() RGB {
	rgb, _, err := ParseHex(string(h))
	if err != nil {
		return RGB{}
	}
	return rgb
}

// String returns the hex string.
func (h Hex) String() string {
	return string(h)
}

// WeightedColour is a colour with its accumulated visual weight and its share
// of the total weight as a percentage.
type WeightedColour struct {
	Color      Hex     `json:"color"`
	Weight     float64 `json:"weight"`
	Percentage float64 `json:"percentage"`
}

// Role is the palette role assigned by the classifier.
type Role string

const (
	RolePrimary   Role = "primary"
	RoleSecondary Role = "secondary"
	RoleAccent    Role = "accent"
)

// Roles lists the roles in presentation order.
var Roles = []Role{RolePrimary, RoleSecondary, RoleAccent}

// ParseRole parses a role name. "all" and the empty string yield "".
func ParseRole(name string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "all":
		return "", nil
	case "primary":
		return RolePrimary, nil
	case "secondary":
		return RoleSecondary, nil
	case "accent":
		return RoleAccent, nil
	default:
		return "", fmt.Errorf("unknown role %q (valid: all, primary, secondary, accent)", name)
	}
}

// ClassifiedPalette groups weighted colours by role. The roles are disjoint.
type ClassifiedPalette struct {
	Primary   []WeightedColour `json:"primary"`
	Secondary []WeightedColour `json:"secondary"`
	Accent    []WeightedColour `json:"accent"`
}

// Get returns the colours assigned to role.
func (p ClassifiedPalette) Get(role Role) []WeightedColour {
	switch role {
	case RolePrimary:
		return p.Primary
	case RoleSecondary:
		return p.Secondary
	case RoleAccent:
		return p.Accent
	default:
		return nil
	}
}

// Len returns the number of classified colours.
func (p ClassifiedPalette) Len() int {
	return len(p.Primary) + len(p.Secondary) + len(p.Accent)
}

// ToJSON returns the classified palette as indented JSON.
func (p ClassifiedPalette) ToJSON() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}
