package static

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"

	"github.com/jmylchreest/pagetint/internal/colour"
	"github.com/jmylchreest/pagetint/internal/dom"
)

const (
	defaultFontSize = 16.0

	// maxVarDepth bounds var() substitution chains inside one value.
	maxVarDepth = 16
)

type propertyDef struct {
	initial   string
	inherited bool
	colour    bool
	keyword   bool
}

// properties lists every computed property the engine produces. Anything else
// that is declared is ignored apart from custom properties.
var properties = map[string]propertyDef{
	"color":                 {initial: "rgb(0, 0, 0)", inherited: true, colour: true},
	"background-color":      {initial: "rgba(0, 0, 0, 0)", colour: true},
	"border-top-color":      {initial: "currentcolor", colour: true},
	"border-right-color":    {initial: "currentcolor", colour: true},
	"border-bottom-color":   {initial: "currentcolor", colour: true},
	"border-left-color":     {initial: "currentcolor", colour: true},
	"outline-color":         {initial: "currentcolor", colour: true},
	"text-decoration-color": {initial: "currentcolor", colour: true},
	"column-rule-color":     {initial: "currentcolor", colour: true},
	"fill":                  {initial: "rgb(0, 0, 0)", inherited: true, colour: true},
	"stroke":                {initial: "none", inherited: true, colour: true},
	"box-shadow":            {initial: "none"},
	"display":               {initial: "inline", keyword: true},
	"visibility":            {initial: "visible", inherited: true, keyword: true},
	"opacity":               {initial: "1"},
	"width":                 {initial: "auto"},
	"height":                {initial: "auto"},
	"font-size":             {initial: "16px", inherited: true},
	"line-height":           {initial: "normal", inherited: true},
	"content":               {initial: "normal"},
}

var borderSides = []string{"top", "right", "bottom", "left"}

// uaDisplay holds the user-agent display value for tags that are not inline.
var uaDisplay = map[string]string{
	"html": "block", "body": "block", "div": "block", "p": "block", "section": "block",
	"article": "block", "aside": "block", "header": "block", "footer": "block", "nav": "block",
	"main": "block", "form": "block", "fieldset": "block", "figure": "block", "figcaption": "block",
	"blockquote": "block", "pre": "block", "address": "block", "details": "block", "summary": "block",
	"dialog": "block", "hr": "block", "h1": "block", "h2": "block", "h3": "block", "h4": "block",
	"h5": "block", "h6": "block", "ul": "block", "ol": "block", "dl": "block", "dt": "block",
	"dd": "block", "menu": "block", "legend": "block", "center": "block",
	"li": "list-item",
	"table": "table", "thead": "table-row-group", "tbody": "table-row-group", "tfoot": "table-row-group",
	"tr": "table-row", "td": "table-cell", "th": "table-cell", "caption": "table-caption",
	"button": "inline-block", "input": "inline-block", "select": "inline-block", "textarea": "inline-block",
	"head": "none", "script": "none", "style": "none", "title": "none", "meta": "none", "link": "none",
	"template": "none", "noscript": "none", "base": "none", "datalist": "none", "param": "none",
	"source": "none", "track": "none",
}

// presentationAttrs are SVG attributes that feed the cascade below author rules.
var presentationAttrs = []string{"fill", "stroke", "color"}

type propState struct {
	val       string
	spec      cascadia.Specificity
	order     int
	important bool
}

func computeStyles(root *Element, ss *stylesheet) {
	var walk func(el *Element, parent dom.StyleMap)
	walk = func(el *Element, parent dom.StyleMap) {
		cascaded := cascade(el, ss, dom.PseudoNone)
		if _, hidden := el.Attr("hidden"); hidden {
			if _, set := cascaded["display"]; !set {
				cascaded["display"] = "none"
			}
		}
		own := resolve(cascaded, parent, uaDisplayFor(el.Tag()))

		el.styles = map[dom.Pseudo]dom.StyleMap{dom.PseudoNone: own}
		for _, p := range dom.Pseudos {
			el.styles[p] = resolve(cascade(el, ss, p), own, "inline")
		}

		for _, c := range el.children {
			walk(c, own)
		}
	}
	walk(root, nil)
}

func uaDisplayFor(tag string) string {
	if d, ok := uaDisplay[tag]; ok {
		return d
	}
	return "inline"
}

// cascade returns the winning declared value of each property for el.
func cascade(el *Element, ss *stylesheet, pseudo dom.Pseudo) map[string]string {
	store := map[string]propState{}

	if pseudo == dom.PseudoNone {
		for _, name := range presentationAttrs {
			if v, ok := el.Attr(name); ok && strings.TrimSpace(v) != "" {
				applyDeclaration(store, declaration{property: name, value: v}, cascadia.Specificity{}, -1)
			}
		}
	}

	for _, r := range ss.rules {
		if r.pseudo != pseudo || !r.selector.Match(el.node) {
			continue
		}
		for _, d := range r.declarations {
			applyDeclaration(store, d, r.specificity, r.order)
		}
	}

	if pseudo == dom.PseudoNone {
		if inline, ok := el.Attr("style"); ok {
			for i, d := range parseInlineStyle(inline) {
				applyDeclaration(store, d, cascadia.Specificity{1 << 12, 0, 0}, (1<<30)+i)
			}
		}
	}

	out := make(map[string]string, len(store))
	for k, st := range store {
		out[k] = st.val
	}
	return out
}

// applyDeclaration expands shorthands and records each longhand if it wins
// over the current value by importance, specificity and then source order.
func applyDeclaration(store map[string]propState, decl declaration, spec cascadia.Specificity, order int) {
	for _, d := range expandShorthand(decl) {
		entry := propState{val: d.value, spec: spec, order: order, important: d.important}
		prev, ok := store[d.property]
		if !ok {
			store[d.property] = entry
			continue
		}
		switch {
		case prev.important && !d.important:
		case d.important && !prev.important:
			store[d.property] = entry
		case prev.spec.Less(spec):
			store[d.property] = entry
		case spec.Less(prev.spec):
		case order >= prev.order:
			store[d.property] = entry
		}
	}
}

func expandShorthand(d declaration) []declaration {
	longhand := func(props ...string) func(string) []declaration {
		return func(v string) []declaration {
			out := make([]declaration, len(props))
			for i, p := range props {
				out[i] = declaration{property: p, value: v, important: d.important}
			}
			return out
		}
	}

	withColour := func(expand func(string) []declaration, fallback string) []declaration {
		if isGlobalKeyword(d.value) {
			return expand(d.value)
		}
		if c, ok := colourToken(d.value); ok {
			return expand(c)
		}
		return expand(fallback)
	}

	allSides := make([]string, len(borderSides))
	for i, s := range borderSides {
		allSides[i] = "border-" + s + "-color"
	}

	switch d.property {
	case "background":
		return withColour(longhand("background-color"), "transparent")
	case "border":
		return withColour(longhand(allSides...), "currentcolor")
	case "border-top", "border-right", "border-bottom", "border-left":
		return withColour(longhand(d.property+"-color"), "currentcolor")
	case "border-color":
		return expandBoxValues(d, allSides)
	case "outline":
		return withColour(longhand("outline-color"), "currentcolor")
	case "text-decoration":
		return withColour(longhand("text-decoration-color"), "currentcolor")
	case "column-rule":
		return withColour(longhand("column-rule-color"), "currentcolor")
	default:
		return []declaration{d}
	}
}

// expandBoxValues applies the 1-4 value top/right/bottom/left pattern.
func expandBoxValues(d declaration, props []string) []declaration {
	vals := splitTopLevel(d.value)
	var sides [4]string
	switch len(vals) {
	case 1:
		sides = [4]string{vals[0], vals[0], vals[0], vals[0]}
	case 2:
		sides = [4]string{vals[0], vals[1], vals[0], vals[1]}
	case 3:
		sides = [4]string{vals[0], vals[1], vals[2], vals[1]}
	case 4:
		sides = [4]string{vals[0], vals[1], vals[2], vals[3]}
	default:
		return nil
	}
	out := make([]declaration, 4)
	for i := range sides {
		out[i] = declaration{property: props[i], value: sides[i], important: d.important}
	}
	return out
}

// colourToken picks the colour component of a shorthand value. A literal
// colour wins over a var() reference; with several references the last one
// is taken.
func colourToken(value string) (string, bool) {
	var ref string
	for _, tok := range splitTopLevel(value) {
		lower := strings.ToLower(tok)
		if lower == "currentcolor" {
			return tok, true
		}
		if strings.HasPrefix(lower, "var(") {
			ref = tok
			continue
		}
		if _, err := colour.ParseCSS(tok); err == nil {
			return tok, true
		}
	}
	return ref, ref != ""
}

// splitTopLevel splits on whitespace outside parentheses.
func splitTopLevel(value string) []string {
	var out []string
	depth := 0
	start := -1
	for i, r := range value {
		switch {
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case (r == ' ' || r == '\t' || r == '\n') && depth == 0:
			if start >= 0 {
				out = append(out, value[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, value[start:])
	}
	return out
}

func isGlobalKeyword(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "inherit", "initial", "unset", "revert":
		return true
	}
	return false
}

// resolve turns cascaded values into computed values: custom properties and
// var() references are substituted, inheritance and initial values are
// applied and colours are serialised the way getComputedStyle reports them.
func resolve(cascaded map[string]string, parent dom.StyleMap, display string) dom.StyleMap {
	out := dom.StyleMap{}

	for k, v := range parent {
		if strings.HasPrefix(k, "--") {
			out[k] = v
		}
	}
	own := map[string]string{}
	for k, v := range cascaded {
		if !strings.HasPrefix(k, "--") {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "initial":
			delete(out, k)
		case "inherit", "unset":
		default:
			own[k] = v
		}
	}
	for k := range own {
		if v, ok := resolveCustomProperty(k, own, out, map[string]bool{}); ok {
			out[k] = v
		} else {
			delete(out, k)
		}
	}

	// color first so currentcolor can be resolved against it.
	names := make([]string, 0, len(properties))
	names = append(names, "color")
	for name := range properties {
		if name != "color" {
			names = append(names, name)
		}
	}

	for _, name := range names {
		def := properties[name]
		initial := def.initial
		if name == "display" {
			initial = display
		}

		v, has := cascaded[name]
		if has {
			if sub, ok := substituteVars(v, out, 0); ok {
				v = sub
			} else {
				v = "unset"
			}
		}

		switch keyword := strings.ToLower(strings.TrimSpace(v)); {
		case !has || keyword == "unset" || keyword == "revert":
			if def.inherited && parent != nil {
				v = parent[name]
			} else {
				v = initial
			}
		case keyword == "inherit":
			if parent != nil {
				v = parent[name]
			} else {
				v = initial
			}
		case keyword == "initial":
			v = initial
		}

		switch {
		case def.colour:
			current := out["color"]
			if name == "color" {
				current = parent.Get("color")
				if current == "" {
					current = properties["color"].initial
				}
			}
			v = serialiseColour(v, current)
		case def.keyword:
			v = strings.ToLower(strings.TrimSpace(v))
		case name == "opacity":
			v = computeOpacity(v)
		case name == "box-shadow":
			v = serialiseColourTokens(v, out["color"])
		case name == "font-size":
			v = computeFontSize(v, parent)
		}

		out[name] = v
	}

	out["border-color"] = borderColor(out)
	return out
}

// resolveCustomProperty substitutes references inside a custom property
// declared on this element. Cycles make every property in them invalid.
func resolveCustomProperty(name string, own, inherited map[string]string, visiting map[string]bool) (string, bool) {
	if visiting[name] {
		return "", false
	}
	raw, ok := own[name]
	if !ok {
		v, ok := inherited[name]
		return v, ok
	}
	visiting[name] = true
	defer delete(visiting, name)

	lookup := func(ref string) (string, bool) {
		return resolveCustomProperty(ref, own, inherited, visiting)
	}
	return substitute(raw, lookup, 0)
}

var varRef = regexp.MustCompile(`var\(\s*(--[\w-]+)\s*(?:,\s*([^()]*(?:\([^()]*\)[^()]*)*))?\)`)

// substituteVars replaces var() references using already computed custom
// properties. It fails when a reference has no value and no fallback.
func substituteVars(v string, custom map[string]string, depth int) (string, bool) {
	lookup := func(ref string) (string, bool) {
		val, ok := custom[ref]
		return val, ok
	}
	return substitute(v, lookup, depth)
}

func substitute(v string, lookup func(string) (string, bool), depth int) (string, bool) {
	if !strings.Contains(v, "var(") {
		return v, true
	}
	if depth >= maxVarDepth {
		return "", false
	}

	failed := false
	out := varRef.ReplaceAllStringFunc(v, func(m string) string {
		sub := varRef.FindStringSubmatch(m)
		if val, ok := lookup(sub[1]); ok && strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
		if strings.Contains(m, ",") {
			return strings.TrimSpace(sub[2])
		}
		failed = true
		return m
	})
	if failed {
		return "", false
	}
	if out == v {
		return "", false
	}
	return substitute(out, lookup, depth+1)
}

// serialiseColour converts a colour value to rgb()/rgba() form. Values that
// are not colours (none, url(...)) are returned unchanged.
func serialiseColour(v, current string) string {
	trimmed := strings.TrimSpace(v)
	if strings.EqualFold(trimmed, "currentcolor") {
		return current
	}
	c, err := colour.ParseCSS(trimmed)
	if err != nil {
		return trimmed
	}
	return formatRGB(c)
}

func formatRGB(c colour.CSSColour) string {
	if c.Alpha >= 1 {
		return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c.R, c.G, c.B, strconv.FormatFloat(c.Alpha, 'f', -1, 64))
}

// serialiseColourTokens rewrites every colour token in a multi-part value
// such as box-shadow.
func serialiseColourTokens(v, current string) string {
	if strings.EqualFold(strings.TrimSpace(v), "none") {
		return "none"
	}
	layers := strings.Split(v, ",")
	if strings.Contains(v, "(") {
		layers = splitLayers(v)
	}
	for i, layer := range layers {
		toks := splitTopLevel(strings.TrimSpace(layer))
		for j, tok := range toks {
			if strings.EqualFold(tok, "currentcolor") {
				toks[j] = current
				continue
			}
			if c, err := colour.ParseCSS(tok); err == nil {
				toks[j] = formatRGB(c)
			}
		}
		layers[i] = strings.Join(toks, " ")
	}
	return strings.Join(layers, ", ")
}

// splitLayers splits on commas outside parentheses.
func splitLayers(v string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range v {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				out = append(out, v[start:i])
				start = i + 1
			}
		}
	}
	return append(out, v[start:])
}

func borderColor(st dom.StyleMap) string {
	vals := make([]string, len(borderSides))
	for i, s := range borderSides {
		vals[i] = st["border-"+s+"-color"]
	}
	if vals[0] == vals[1] && vals[1] == vals[2] && vals[2] == vals[3] {
		return vals[0]
	}
	return strings.Join(vals, " ")
}

// computeOpacity reduces a number or percentage to the clamped number
// getComputedStyle reports. Unparseable values fall back to fully opaque.
func computeOpacity(v string) string {
	v = strings.TrimSpace(v)
	scale := 1.0
	if strings.HasSuffix(v, "%") {
		v, scale = strings.TrimSuffix(v, "%"), 0.01
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return "1"
	}
	f = min(max(f*scale, 0), 1)
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func computeFontSize(v string, parent dom.StyleMap) string {
	parentSize := defaultFontSize
	if parent != nil {
		if px, ok := lengthToPx(parent["font-size"], lengthContext{fontSize: defaultFontSize}); ok {
			parentSize = px
		}
	}

	keywords := map[string]float64{
		"xx-small": 9, "x-small": 10, "small": 13, "medium": 16,
		"large": 18, "x-large": 24, "xx-large": 32,
	}
	lower := strings.ToLower(strings.TrimSpace(v))
	if px, ok := keywords[lower]; ok {
		return formatPx(px)
	}
	if px, ok := lengthToPx(lower, lengthContext{percent: parentSize, fontSize: parentSize}); ok {
		return formatPx(px)
	}
	return formatPx(parentSize)
}

func formatPx(px float64) string {
	return strconv.FormatFloat(px, 'f', -1, 64) + "px"
}
