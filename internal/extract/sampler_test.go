package extract

import (
	"math"
	"testing"

	"github.com/jmylchreest/pagetint/internal/colour"
	"github.com/jmylchreest/pagetint/internal/dom"
	"github.com/jmylchreest/pagetint/internal/dom/domtest"
)

func box(w, h float64) dom.Rect {
	return dom.Rect{Width: w, Height: h}
}

func TestWeightFor(t *testing.T) {
	tests := []struct {
		ch   Channel
		c    colour.Hex
		want float64
	}{
		{ChannelBackground, "#FF0000", 120},
		{ChannelBackground, "#000000", 36},
		{ChannelBackground, "#FFFFFF", 36},
		{ChannelText, "#FF0000", 15},
		{ChannelText, "#000000", 4},
		{ChannelText, "#FFFFFF", 15},
		{ChannelBorder, "#000000", 8},
		{ChannelOutline, "#FF0000", 20},
		{ChannelShadow, "#000000", 3},
		{ChannelTextDecoration, "#FF0000", 10},
		{ChannelColumnRule, "#000000", 3},
		{ChannelPseudoBackground, "#FF0000", 24},
		{ChannelPseudoText, "#FF0000", 12},
		{ChannelSVGFill, "#FF0000", 20},
		{ChannelSVGStroke, "#FF0000", 15},
	}
	for _, tt := range tests {
		t.Run(string(tt.ch)+tt.c.String(), func(t *testing.T) {
			if got := weightFor(tt.ch, tt.c, 120); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("weightFor(%s, %s, 120) = %v, want %v", tt.ch, tt.c, got, tt.want)
			}
		})
	}
}

func TestSamplerChannels(t *testing.T) {
	el := domtest.NewElement("div", box(10, 10), dom.StyleMap{
		"background-color":      "rgb(255, 0, 0)",
		"color":                 "rgb(0, 0, 0)",
		"border-color":          "rgb(0, 0, 255)",
		"outline-color":         "rgba(0, 0, 0, 0)",
		"box-shadow":            "rgba(0, 128, 0, 0.5) 0px 1px 2px 0px, rgb(255, 0, 0) 0px 0px 1px 0px",
		"text-decoration-color": "transparent",
		"column-rule-color":     "var(--rule)",
	}).WithPseudo(dom.PseudoBefore, dom.StyleMap{
		"background-color": "rgb(255, 255, 0)",
		"color":            "rgb(0, 0, 0)",
	})
	doc := domtest.NewDocument(el)
	doc.RootEl.Styles[dom.PseudoNone]["--rule"] = "#00ffff"

	got := NewSampler(SamplerOptions{}, nil).Sample(doc)
	want := []Sample{
		{Colour: "#FF0000", Weight: 100, Channel: ChannelBackground},
		{Colour: "#000000", Weight: 100.0 / 30, Channel: ChannelText},
		{Colour: "#0000FF", Weight: 25, Channel: ChannelBorder},
		{Colour: "#008000", Weight: 10, Channel: ChannelShadow},
		{Colour: "#00FFFF", Weight: 10, Channel: ChannelColumnRule},
		{Colour: "#FFFF00", Weight: 20, Channel: ChannelPseudoBackground},
		{Colour: "#000000", Weight: 100.0 / 40, Channel: ChannelPseudoText},
	}
	assertSamples(t, got, want)
}

func TestSamplerSVG(t *testing.T) {
	rect := domtest.NewElement("rect", box(20, 10), dom.StyleMap{
		"fill":   "rgb(0, 0, 0)",
		"stroke": "none",
	}).WithAttr("fill", "none").WithAttr("stroke", "var(--stroke)")
	circle := domtest.NewElement("circle", box(10, 10), dom.StyleMap{
		"fill":   "rgb(255, 0, 0)",
		"stroke": "none",
	})
	nonSVG := domtest.NewElement("span", box(10, 10), dom.StyleMap{
		"fill": "rgb(0, 255, 0)",
	})
	doc := domtest.NewDocument(rect, circle, nonSVG)
	doc.RootEl.Styles[dom.PseudoNone]["--stroke"] = "#00ff00"

	got := NewSampler(SamplerOptions{}, nil).Sample(doc)
	want := []Sample{
		{Colour: "#00FF00", Weight: 200.0 / 8, Channel: ChannelSVGStroke},
		{Colour: "#FF0000", Weight: 100.0 / 6, Channel: ChannelSVGFill},
	}
	assertSamples(t, got, want)
}

func TestSamplerSkips(t *testing.T) {
	tiny := domtest.NewElement("div", box(2, 2), dom.StyleMap{"background-color": "rgb(255, 0, 0)"})
	line := domtest.NewElement("hr", box(500, 0), dom.StyleMap{"background-color": "rgb(255, 0, 0)"})
	broken := &domtest.Element{TagName: "div", Box: box(10, 10)}
	noPseudo := domtest.NewElement("p", box(5, 1), dom.StyleMap{"color": "#123456"})

	got := NewSampler(SamplerOptions{}, nil).Sample(domtest.NewDocument(tiny, line, broken, noPseudo))
	want := []Sample{
		{Colour: "#123456", Weight: 5.0 / 8, Channel: ChannelText},
	}
	assertSamples(t, got, want)

	got = NewSampler(SamplerOptions{MinArea: 1}, nil).Sample(domtest.NewDocument(tiny))
	if len(got) != 1 || got[0].Colour != "#FF0000" {
		t.Errorf("MinArea=1 samples = %+v, want the tiny background", got)
	}
}

func TestSamplerEmptyDocument(t *testing.T) {
	if got := NewSampler(SamplerOptions{}, nil).Sample(domtest.NewDocument()); len(got) != 0 {
		t.Errorf("Sample() = %+v, want none", got)
	}
}

func assertSamples(t *testing.T, got, want []Sample) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d samples %+v, want %d %+v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i].Colour != want[i].Colour || got[i].Channel != want[i].Channel ||
			math.Abs(got[i].Weight-want[i].Weight) > 1e-9 {
			t.Errorf("sample %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
