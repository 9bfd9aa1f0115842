package extract

import (
	"regexp"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/pagetint/internal/colour"
	"github.com/jmylchreest/pagetint/internal/dom"
)

// DefaultMinArea is the smallest element area, in square CSS pixels, that is
// sampled. Smaller elements are treated as decorative noise.
const DefaultMinArea = 5

// Channel is a visual property of an element that can carry a colour.
type Channel string

const (
	ChannelBackground       Channel = "background"
	ChannelText             Channel = "text"
	ChannelBorder           Channel = "border"
	ChannelOutline          Channel = "outline"
	ChannelShadow           Channel = "shadow"
	ChannelTextDecoration   Channel = "text-decoration"
	ChannelColumnRule       Channel = "column-rule"
	ChannelPseudoBackground Channel = "pseudo-background"
	ChannelPseudoText       Channel = "pseudo-text"
	ChannelSVGFill          Channel = "svg-fill"
	ChannelSVGStroke        Channel = "svg-stroke"
)

// Weight is the fraction of an element's area a channel contributes. Black
// is applied instead of Normal for #000000 and, for backgrounds only, for
// #FFFFFF.
type Weight struct {
	Normal float64
	Black  float64
}

// ChannelWeights is the per-channel weighting policy.
var ChannelWeights = map[Channel]Weight{
	ChannelBackground:       {Normal: 1, Black: 0.3},
	ChannelText:             {Normal: 1.0 / 8, Black: 1.0 / 30},
	ChannelBorder:           {Normal: 1.0 / 4, Black: 1.0 / 15},
	ChannelOutline:          {Normal: 1.0 / 6, Black: 1.0 / 20},
	ChannelShadow:           {Normal: 1.0 / 10, Black: 1.0 / 40},
	ChannelTextDecoration:   {Normal: 1.0 / 12, Black: 1.0 / 50},
	ChannelColumnRule:       {Normal: 1.0 / 10, Black: 1.0 / 40},
	ChannelPseudoBackground: {Normal: 1.0 / 5, Black: 1.0 / 20},
	ChannelPseudoText:       {Normal: 1.0 / 10, Black: 1.0 / 40},
	ChannelSVGFill:          {Normal: 1.0 / 6, Black: 1.0 / 25},
	ChannelSVGStroke:        {Normal: 1.0 / 8, Black: 1.0 / 35},
}

const (
	black colour.Hex = "#000000"
	white colour.Hex = "#FFFFFF"
)

// weightFor returns the sample weight of c on channel ch for an element of
// the given area.
func weightFor(ch Channel, c colour.Hex, area float64) float64 {
	w := ChannelWeights[ch]
	if c == black || (ch == ChannelBackground && c == white) {
		return area * w.Black
	}
	return area * w.Normal
}

// Sample is one colour observation.
type Sample struct {
	Colour  colour.Hex `json:"color"`
	Weight  float64    `json:"weight"`
	Channel Channel    `json:"channel"`
}

// shadowColour matches the first colour token of a box-shadow value.
var shadowColour = regexp.MustCompile(`(?i)(rgba?\([^)]+\)|hsla?\([^)]+\)|#[0-9a-f]{3,8}|var\([^)]+\))`)

// svgTags are the SVG elements whose fill and stroke are sampled.
var svgTags = map[string]bool{
	"svg": true, "path": true, "rect": true, "circle": true, "ellipse": true,
	"line": true, "polyline": true, "polygon": true,
}

// SamplerOptions configures a Sampler.
type SamplerOptions struct {
	// MinArea overrides DefaultMinArea when positive.
	MinArea float64
}

// Sampler reads candidate colours from every element of a document.
type Sampler struct {
	minArea float64
	logger  hclog.Logger
}

// NewSampler creates a Sampler.
func NewSampler(opts SamplerOptions, logger hclog.Logger) *Sampler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	minArea := opts.MinArea
	if minArea <= 0 {
		minArea = DefaultMinArea
	}
	return &Sampler{minArea: minArea, logger: logger}
}

// Sample walks doc in document order and returns one sample per channel that
// carries a colour. Samples are not deduplicated.
func (s *Sampler) Sample(doc dom.Document) []Sample {
	norm := NewNormalizer(doc, s.logger.Named("normalize"))

	var samples []Sample
	for _, el := range doc.Elements() {
		samples = s.sampleElement(samples, norm, el)
	}

	s.logger.Debug("sampled document", "elements", len(doc.Elements()), "samples", len(samples))
	return samples
}

func (s *Sampler) sampleElement(samples []Sample, norm *Normalizer, el dom.Element) []Sample {
	area := el.Rect().Area()
	if area < s.minArea {
		return samples
	}

	add := func(ch Channel, raw string) {
		if c, ok := norm.Normalize(raw, el); ok {
			samples = append(samples, Sample{Colour: c, Weight: weightFor(ch, c, area), Channel: ch})
		}
	}

	st, err := el.Style(dom.PseudoNone)
	if err != nil {
		s.logger.Trace("skipping element", "tag", el.Tag(), "error", err)
		return samples
	}

	add(ChannelBackground, st.Get("background-color"))
	add(ChannelText, st.Get("color"))
	add(ChannelBorder, st.Get("border-color"))
	add(ChannelOutline, st.Get("outline-color"))
	if shadow := st.Get("box-shadow"); shadow != "" && shadow != "none" {
		if tok := shadowColour.FindString(shadow); tok != "" {
			add(ChannelShadow, tok)
		}
	}
	add(ChannelTextDecoration, st.Get("text-decoration-color"))
	add(ChannelColumnRule, st.Get("column-rule-color"))

	for _, p := range dom.Pseudos {
		ps, err := el.Style(p)
		if err != nil {
			s.logger.Trace("pseudo-element style unavailable", "tag", el.Tag(), "pseudo", p, "error", err)
			continue
		}
		add(ChannelPseudoBackground, ps.Get("background-color"))
		add(ChannelPseudoText, ps.Get("color"))
	}

	if svgTags[el.Tag()] {
		for _, paint := range []struct {
			name string
			ch   Channel
		}{{"fill", ChannelSVGFill}, {"stroke", ChannelSVGStroke}} {
			raw, ok := el.Attr(paint.name)
			if !ok || strings.TrimSpace(raw) == "" {
				raw = st.Get(paint.name)
			}
			resolved := strings.TrimSpace(norm.ResolveVariables(raw, el))
			if resolved == "" || strings.EqualFold(resolved, "none") {
				continue
			}
			add(paint.ch, resolved)
		}
	}

	return samples
}
