package export

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/jmylchreest/pagetint/internal/colour"
)

// CSS renders custom properties on :root.
type CSS struct {
	loader *Loader
}

func (*CSS) Name() string        { return "css" }
func (*CSS) Description() string { return "CSS custom properties (--color-<role>-N) on :root" }

func (e *CSS) Export(p Palette) (map[string][]byte, error) {
	loader := e.loader
	if loader == nil {
		loader = NewLoader("css", "")
	}
	out, err := loader.Render("css.tmpl", p.Classified)
	if err != nil {
		return nil, err
	}
	return map[string][]byte{"palette.css": out}, nil
}

// Tailwind renders a theme.extend.colors configuration object.
type Tailwind struct{}

type tailwindScale map[string]colour.Hex

type tailwindConfig struct {
	Theme struct {
		Extend struct {
			Colors struct {
				Primary   tailwindScale `json:"primary"`
				Secondary tailwindScale `json:"secondary"`
				Accent    tailwindScale `json:"accent"`
			} `json:"colors"`
		} `json:"extend"`
	} `json:"theme"`
}

func (Tailwind) Name() string        { return "tailwind" }
func (Tailwind) Description() string { return "Tailwind theme.extend.colors configuration (JSON)" }

func (Tailwind) Export(p Palette) (map[string][]byte, error) {
	var cfg tailwindConfig
	colors := &cfg.Theme.Extend.Colors
	colors.Primary = tailwindKeys(p.Classified.Primary)
	colors.Secondary = tailwindKeys(p.Classified.Secondary)
	colors.Accent = tailwindKeys(p.Classified.Accent)

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode tailwind config: %w", err)
	}
	return map[string][]byte{"tailwind.colors.json": out}, nil
}

// tailwindKeys numbers colours 100, 200, ... in rank order.
func tailwindKeys(colours []colour.WeightedColour) tailwindScale {
	scale := make(tailwindScale, len(colours))
	for i, c := range colours {
		scale[strconv.Itoa((i+1)*100)] = c.Color
	}
	return scale
}

// Figma renders named colour styles with 0-1 channels.
type Figma struct{}

type figmaColour struct {
	Name  string `json:"name"`
	Color struct {
		R float64 `json:"r"`
		G float64 `json:"g"`
		B float64 `json:"b"`
		A float64 `json:"a"`
	} `json:"color"`
}

func (Figma) Name() string        { return "figma" }
func (Figma) Description() string { return "Figma colour styles JSON (Role/N, channels 0-1)" }

func (Figma) Export(p Palette) (map[string][]byte, error) {
	doc := struct {
		Colors []figmaColour `json:"colors"`
	}{Colors: []figmaColour{}}

	groups := []struct {
		label   string
		colours []colour.WeightedColour
	}{
		{"Primary", p.Classified.Primary},
		{"Secondary", p.Classified.Secondary},
		{"Accent", p.Classified.Accent},
	}
	for _, g := range groups {
		for i, wc := range g.colours {
			c, err := colorful.Hex(string(wc.Color))
			if err != nil {
				return nil, fmt.Errorf("failed to convert %s: %w", wc.Color, err)
			}
			fc := figmaColour{Name: fmt.Sprintf("%s/%d", g.label, i+1)}
			fc.Color.R, fc.Color.G, fc.Color.B, fc.Color.A = c.R, c.G, c.B, 1
			doc.Colors = append(doc.Colors, fc)
		}
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode figma colours: %w", err)
	}
	return map[string][]byte{"figma.json": out}, nil
}

// JSON renders the ranked colour list.
type JSON struct{}

func (JSON) Name() string        { return "json" }
func (JSON) Description() string { return "Ranked colour list with weights and percentages" }

func (JSON) Export(p Palette) (map[string][]byte, error) {
	out, err := json.MarshalIndent(p.Colors, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode colours: %w", err)
	}
	return map[string][]byte{"colors.json": out}, nil
}
