package export

import (
	"github.com/jmylchreest/pagetint/internal/colour"
	"github.com/jmylchreest/pagetint/pkg/exporter"
)

// PluginData converts p to the wire form sent to external exporters.
func PluginData(p Palette, args map[string]string) exporter.PaletteData {
	convert := func(colours []colour.WeightedColour) []exporter.Colour {
		out := make([]exporter.Colour, len(colours))
		for i, wc := range colours {
			rgb := wc.Color.RGB()
			out[i] = exporter.Colour{
				Hex:        string(wc.Color),
				RGB:        exporter.RGB{R: rgb.R, G: rgb.G, B: rgb.B},
				Weight:     wc.Weight,
				Percentage: wc.Percentage,
				Role:       string(p.Classified.RoleOf(wc.Color)),
			}
		}
		return out
	}

	return exporter.PaletteData{
		URL:       p.URL,
		Colors:    convert(p.Colors),
		Primary:   convert(p.Classified.Primary),
		Secondary: convert(p.Classified.Secondary),
		Accent:    convert(p.Classified.Accent),
		Args:      args,
	}
}
