package static

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/jmylchreest/pagetint/internal/dom"
)

// averageGlyphWidth approximates the advance of one character in ems.
const averageGlyphWidth = 0.5

// replacedTags are elements whose width and height apply even when inline.
var replacedTags = map[string]bool{
	"img": true, "svg": true, "canvas": true, "video": true, "iframe": true,
	"input": true, "button": true, "select": true, "textarea": true, "object": true, "embed": true,
}

// svgShapes are positioned inside their <svg> and sized from geometry attributes.
var svgShapes = map[string]bool{
	"path": true, "rect": true, "circle": true, "ellipse": true,
	"line": true, "polyline": true, "polygon": true, "g": true, "text": true, "use": true,
}

type layouter struct {
	vw, vh float64
}

// layout assigns a bounding box to every element. It models normal flow
// only: blocks stack vertically at their container's width, inline content
// wraps into lines, table rows split their width between cells. Margins,
// padding, floats and positioning are not modelled.
func layout(root *Element, opts Options) {
	w, h := opts.viewport()
	lt := &layouter{vw: float64(w), vh: float64(h)}
	lt.place(root, 0, 0, lt.vw, -1)
}

// place lays out el at (x, y) within a container of width avail. parentH is
// the container's definite height, or -1 when it is content sized. It
// returns the element's height.
func (lt *layouter) place(el *Element, x, y, avail, parentH float64) float64 {
	st := el.styles[dom.PseudoNone]
	display := st.Get("display")
	if display == "none" {
		return 0
	}

	tag := el.Tag()
	if svgShapes[tag] {
		el.rect = lt.shapeRect(el, x, y)
		for _, c := range el.children {
			lt.place(c, x, y, el.rect.Width, el.rect.Height)
		}
		return 0
	}

	fontSize := defaultFontSize
	if px, ok := lengthToPx(st.Get("font-size"), lengthContext{fontSize: defaultFontSize}); ok {
		fontSize = px
	}
	lineHeight := computeLineHeight(st.Get("line-height"), fontSize)

	sizeable := display != "inline" || replacedTags[tag]
	widthCtx := lengthContext{percent: avail, fontSize: fontSize, vw: lt.vw, vh: lt.vh}
	heightCtx := lengthContext{percent: math.Max(parentH, 0), fontSize: fontSize, vw: lt.vw, vh: lt.vh}

	width, explicitW := 0.0, false
	if sizeable {
		width, explicitW = lengthToPx(st.Get("width"), widthCtx)
		if !explicitW && replacedTags[tag] {
			width, explicitW = attrLength(el, "width")
		}
	}
	if !explicitW {
		switch {
		case tag == "svg":
			width = 300
		case isBlock(display):
			width = avail
		default:
			width = math.Min(avail, textWidth(el.Text(), fontSize))
		}
	}

	height, explicitH := 0.0, false
	if sizeable {
		hv := st.Get("height")
		if !strings.HasSuffix(strings.TrimSpace(hv), "%") || parentH >= 0 {
			height, explicitH = lengthToPx(hv, heightCtx)
		}
		if !explicitH && replacedTags[tag] {
			height, explicitH = attrLength(el, "height")
		}
		if !explicitH && tag == "svg" {
			height, explicitH = 150, true
		}
	}

	definite := -1.0
	if explicitH {
		definite = height
	}
	content := lt.placeChildren(el, x, y, width, definite, display, fontSize, lineHeight)
	if !explicitH {
		height = content
	}

	el.rect = dom.Rect{X: x, Y: y, Width: width, Height: height}
	return height
}

// placeChildren lays out the children of el and returns the content height.
func (lt *layouter) placeChildren(el *Element, x, y, width, definite float64, display string, fontSize, lineHeight float64) float64 {
	if display == "table-row" {
		cells := make([]*Element, 0, len(el.children))
		for _, c := range el.children {
			if c.styles[dom.PseudoNone].Get("display") != "none" {
				cells = append(cells, c)
			}
		}
		if len(cells) == 0 {
			return 0
		}
		cw := width / float64(len(cells))
		rowH := 0.0
		for i, c := range cells {
			rowH = math.Max(rowH, lt.place(c, x+float64(i)*cw, y, cw, definite))
		}
		return rowH
	}

	cy := y
	inlineRun := textWidth(ownText(el), fontSize)
	flush := func() {
		if inlineRun > 0 && width > 0 {
			cy += math.Ceil(inlineRun/width) * lineHeight
		}
		inlineRun = 0
	}

	for _, c := range el.children {
		cd := c.styles[dom.PseudoNone].Get("display")
		if cd == "none" {
			continue
		}
		if isBlock(cd) {
			flush()
			cy += lt.place(c, x, cy, width, definite)
			continue
		}
		ch := lt.place(c, x, cy, width, definite)
		if cd == "inline" && !replacedTags[c.Tag()] {
			inlineRun += c.rect.Width
			continue
		}
		// Atomic inline boxes occupy a full line when taller than the text.
		flush()
		cy += math.Max(ch, lineHeight)
	}
	flush()

	if display == "inline" && cy == y && strings.TrimSpace(el.Text()) != "" {
		return lineHeight
	}
	return cy - y
}

func (lt *layouter) shapeRect(el *Element, x, y float64) dom.Rect {
	num := func(name string) float64 {
		v, _ := attrLength(el, name)
		return v
	}

	switch el.Tag() {
	case "rect", "use":
		return dom.Rect{X: x + num("x"), Y: y + num("y"), Width: num("width"), Height: num("height")}
	case "circle":
		r := num("r")
		return dom.Rect{X: x + num("cx") - r, Y: y + num("cy") - r, Width: 2 * r, Height: 2 * r}
	case "ellipse":
		rx, ry := num("rx"), num("ry")
		return dom.Rect{X: x + num("cx") - rx, Y: y + num("cy") - ry, Width: 2 * rx, Height: 2 * ry}
	case "line":
		x1, y1, x2, y2 := num("x1"), num("y1"), num("x2"), num("y2")
		return dom.Rect{X: x + math.Min(x1, x2), Y: y + math.Min(y1, y2), Width: math.Abs(x2 - x1), Height: math.Abs(y2 - y1)}
	default:
		// Paths, polygons and groups take the box of the enclosing <svg>.
		if svg := nearestSVG(el); svg != nil {
			return svg.rect
		}
		return dom.Rect{X: x, Y: y}
	}
}

func nearestSVG(el *Element) *Element {
	for p := el.parent; p != nil; p = p.parent {
		if p.Tag() == "svg" {
			return p
		}
	}
	return nil
}

func isBlock(display string) bool {
	switch display {
	case "block", "flex", "grid", "list-item", "table", "table-row-group",
		"table-row", "table-cell", "table-caption", "flow-root":
		return true
	}
	return false
}

func computeLineHeight(v string, fontSize float64) float64 {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" || v == "normal" {
		return fontSize * 1.2
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f * fontSize
	}
	if px, ok := lengthToPx(v, lengthContext{percent: fontSize, fontSize: fontSize}); ok {
		return px
	}
	return fontSize * 1.2
}

func attrLength(el *Element, name string) (float64, bool) {
	v, ok := el.Attr(name)
	if !ok {
		return 0, false
	}
	return lengthToPx(v, lengthContext{fontSize: defaultFontSize})
}

// ownText returns the element's direct text children.
func ownText(el *Element) string {
	var b strings.Builder
	for c := el.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// textWidth estimates the rendered width of whitespace-collapsed text.
func textWidth(s string, fontSize float64) float64 {
	collapsed := strings.Join(strings.Fields(s), " ")
	return float64(utf8.RuneCountInString(collapsed)) * fontSize * averageGlyphWidth
}
