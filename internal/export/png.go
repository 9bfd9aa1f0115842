package export

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/jmylchreest/pagetint/internal/colour"
)

// Swatch geometry in pixels.
const (
	SwatchWidth  = 140
	SwatchHeight = 100
	swatchInset  = 8
)

// PNG renders one labelled swatch per classified colour, grouped by role.
type PNG struct{}

func (PNG) Name() string        { return "png" }
func (PNG) Description() string { return "Swatch image with one labelled block per classified colour" }

func (PNG) Export(p Palette) (map[string][]byte, error) {
	type swatch struct {
		role colour.Role
		wc   colour.WeightedColour
	}
	var swatches []swatch
	for _, role := range colour.Roles {
		for _, wc := range p.Classified.Get(role) {
			swatches = append(swatches, swatch{role, wc})
		}
	}
	if len(swatches) == 0 {
		return nil, ErrEmptyPalette
	}

	img := image.NewRGBA(image.Rect(0, 0, SwatchWidth*len(swatches), SwatchHeight))
	face := basicfont.Face7x13
	lineHeight := face.Metrics().Height.Ceil()

	for i, s := range swatches {
		rgb := s.wc.Color.RGB()
		block := image.Rect(i*SwatchWidth, 0, (i+1)*SwatchWidth, SwatchHeight)
		draw.Draw(img, block, image.NewUniform(rgb), image.Point{}, draw.Src)

		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(colour.LabelColour(rgb)),
			Face: face,
		}
		x := block.Min.X + swatchInset
		y := SwatchHeight - swatchInset - lineHeight
		for _, line := range []string{string(s.role), fmt.Sprintf("%s %.1f%%", s.wc.Color, s.wc.Percentage)} {
			d.Dot = fixed.P(x, y)
			d.DrawString(line)
			y += lineHeight
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return map[string][]byte{"palette.png": buf.Bytes()}, nil
}
