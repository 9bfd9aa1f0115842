package static

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
	cssast "github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/net/html"

	"github.com/jmylchreest/pagetint/internal/dom"
)

const (
	// maxImportDepth bounds @import chains.
	maxImportDepth = 8

	// maxExternalSheets bounds the number of linked or imported stylesheets
	// fetched for one document.
	maxExternalSheets = 16
)

type declaration struct {
	property  string
	value     string
	important bool
}

type rule struct {
	selector     cascadia.Sel
	specificity  cascadia.Specificity
	pseudo       dom.Pseudo
	declarations []declaration
	order        int
}

// stylesheet is the ordered list of author rules that apply to a document.
type stylesheet struct {
	rules []rule
}

type sheetLoader struct {
	ctx     context.Context
	opts    Options
	logger  hclog.Logger
	order   int
	fetched map[string]struct{}
}

// buildStylesheet collects rules from <style> blocks and, when a fetcher is
// configured, from <link rel=stylesheet> and @import targets. Sheets are
// processed in document order.
func buildStylesheet(ctx context.Context, doc *html.Node, opts Options) *stylesheet {
	l := &sheetLoader{
		ctx:     ctx,
		opts:    opts,
		logger:  opts.Logger,
		fetched: make(map[string]struct{}),
	}
	ss := &stylesheet{}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "style":
				if media := getAttr(n, "media"); media == "" || mediaRuleActive(media, opts) {
					var b strings.Builder
					for c := n.FirstChild; c != nil; c = c.NextSibling {
						if c.Type == html.TextNode {
							b.WriteString(c.Data)
						}
					}
					ss.rules = append(ss.rules, l.parse(b.String(), opts.BaseURL, 0)...)
				}
			case "link":
				if href, ok := stylesheetLink(n); ok {
					if media := getAttr(n, "media"); media == "" || mediaRuleActive(media, opts) {
						ss.rules = append(ss.rules, l.fetch(resolveURL(opts.BaseURL, href), 0)...)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return ss
}

func stylesheetLink(n *html.Node) (string, bool) {
	rel := strings.ToLower(getAttr(n, "rel"))
	if !strings.Contains(rel, "stylesheet") || strings.Contains(rel, "alternate") {
		return "", false
	}
	if typ := strings.ToLower(strings.TrimSpace(getAttr(n, "type"))); typ != "" && typ != "text/css" {
		return "", false
	}
	href := strings.TrimSpace(getAttr(n, "href"))
	return href, href != ""
}

func (l *sheetLoader) fetch(abs string, depth int) []rule {
	if abs == "" || l.opts.Fetcher == nil || depth >= maxImportDepth {
		return nil
	}
	if _, seen := l.fetched[abs]; seen || len(l.fetched) >= maxExternalSheets {
		return nil
	}
	l.fetched[abs] = struct{}{}

	body, err := l.opts.Fetcher(l.ctx, abs)
	if err != nil {
		l.logger.Debug("failed to fetch stylesheet", "url", abs, "error", err)
		return nil
	}
	return l.parse(string(body), abs, depth+1)
}

func (l *sheetLoader) parse(text, base string, depth int) []rule {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	sheet, err := parser.Parse(text)
	if err != nil {
		l.logger.Debug("failed to parse stylesheet", "base", base, "error", err)
		return nil
	}

	var rules []rule
	var walk func([]*cssast.Rule)
	walk = func(list []*cssast.Rule) {
		for _, r := range list {
			if r == nil {
				continue
			}
			switch r.Kind {
			case cssast.AtRule:
				switch strings.ToLower(strings.TrimSpace(r.Name)) {
				case "@media":
					if mediaRuleActive(r.Prelude, l.opts) {
						walk(r.Rules)
					}
				case "@supports", "@layer", "@container":
					walk(r.Rules)
				case "@import":
					target, media := importTarget(r.Prelude)
					if target == "" || (media != "" && !mediaRuleActive(media, l.opts)) {
						continue
					}
					rules = append(rules, l.fetch(resolveURL(base, target), depth)...)
				}
			case cssast.QualifiedRule:
				decls := convertDeclarations(r.Declarations)
				if len(decls) == 0 {
					continue
				}
				for _, text := range r.Selectors {
					sel, err := cascadia.ParseWithPseudoElement(text)
					if err != nil {
						l.logger.Trace("skipping selector", "selector", text, "error", err)
						continue
					}
					pseudo, ok := pseudoFor(sel.PseudoElement())
					if !ok {
						continue
					}
					rules = append(rules, rule{
						selector:     sel,
						specificity:  sel.Specificity(),
						pseudo:       pseudo,
						declarations: decls,
						order:        l.order,
					})
					l.order++
				}
			}
		}
	}
	walk(sheet.Rules)

	return rules
}

// pseudoFor maps a cascadia pseudo-element name onto the boxes we compute.
func pseudoFor(name string) (dom.Pseudo, bool) {
	switch name {
	case "":
		return dom.PseudoNone, true
	case "before":
		return dom.PseudoBefore, true
	case "after":
		return dom.PseudoAfter, true
	default:
		return "", false
	}
}

func convertDeclarations(list []*cssast.Declaration) []declaration {
	out := make([]declaration, 0, len(list))
	for _, d := range list {
		if d == nil {
			continue
		}
		prop := strings.TrimSpace(d.Property)
		if !strings.HasPrefix(prop, "--") {
			prop = strings.ToLower(prop)
		}
		val := strings.TrimSpace(d.Value)
		if prop == "" || val == "" {
			continue
		}
		out = append(out, declaration{property: prop, value: val, important: d.Important})
	}
	return out
}

// parseInlineStyle parses a style attribute.
func parseInlineStyle(text string) []declaration {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if !strings.HasSuffix(text, ";") {
		text += ";"
	}
	if decls, err := parser.ParseDeclarations(text); err == nil {
		return convertDeclarations(decls)
	}

	var out []declaration
	for _, part := range strings.Split(text, ";") {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			continue
		}
		d := declaration{property: strings.TrimSpace(kv[0]), value: strings.TrimSpace(kv[1])}
		if lower := strings.ToLower(d.value); strings.HasSuffix(lower, "!important") {
			d.important = true
			d.value = strings.TrimSpace(d.value[:len(d.value)-len("!important")])
		}
		if !strings.HasPrefix(d.property, "--") {
			d.property = strings.ToLower(d.property)
		}
		if d.property != "" && d.value != "" {
			out = append(out, d)
		}
	}
	return out
}

func importTarget(prelude string) (string, string) {
	s := strings.TrimSpace(prelude)
	if s == "" {
		return "", ""
	}
	if strings.HasPrefix(strings.ToLower(s), "url(") {
		end := strings.Index(s, ")")
		if end == -1 {
			return "", ""
		}
		return trimQuotes(s[4:end]), strings.TrimSpace(s[end+1:])
	}
	if (s[0] == '"' || s[0] == '\'') && len(s) > 1 {
		if idx := strings.IndexByte(s[1:], s[0]); idx != -1 {
			return s[1 : idx+1], strings.TrimSpace(s[idx+2:])
		}
	}
	fields := strings.Fields(s)
	return trimQuotes(fields[0]), strings.TrimSpace(strings.TrimPrefix(s, fields[0]))
}

func trimQuotes(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

func resolveURL(base, href string) string {
	hu, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == "" {
		if hu.IsAbs() {
			return hu.String()
		}
		return ""
	}
	bu, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return bu.ResolveReference(hu).String()
}

// mediaRuleActive evaluates a media query list against the configured
// viewport. Screen and all media are active; print and speech are not.
func mediaRuleActive(prelude string, opts Options) bool {
	if strings.TrimSpace(prelude) == "" {
		return true
	}

	for _, raw := range strings.Split(prelude, ",") {
		query := strings.ToLower(strings.TrimSpace(raw))
		if query == "" {
			continue
		}

		negate := false
		if strings.HasPrefix(query, "not ") {
			negate = true
			query = strings.TrimSpace(strings.TrimPrefix(query, "not "))
		}
		query = strings.TrimSpace(strings.TrimPrefix(query, "only "))

		mediaType := ""
		rest := query
		if parts := strings.Fields(query); len(parts) > 0 && !strings.HasPrefix(parts[0], "(") {
			mediaType = parts[0]
			rest = strings.TrimSpace(strings.TrimPrefix(query, mediaType))
			rest = strings.TrimSpace(strings.TrimPrefix(rest, "and"))
		}

		var match bool
		switch mediaType {
		case "", "all", "screen":
			match = evaluateMediaFeatures(rest, opts)
		default:
			match = false
		}
		if match != negate {
			return true
		}
	}
	return false
}

func evaluateMediaFeatures(expr string, opts Options) bool {
	width, height := opts.viewport()
	lc := lengthContext{fontSize: defaultFontSize, vw: float64(width), vh: float64(height)}

	for _, clause := range strings.Split(expr, " and ") {
		c := strings.TrimSpace(clause)
		if c == "" {
			continue
		}
		c = strings.TrimSuffix(strings.TrimPrefix(c, "("), ")")
		parts := strings.SplitN(c, ":", 2)
		feature := strings.TrimSpace(parts[0])
		value := ""
		if len(parts) == 2 {
			value = strings.TrimSpace(parts[1])
		}

		switch feature {
		case "min-width":
			if px, ok := lengthToPx(value, lc); ok && float64(width) < px {
				return false
			}
		case "max-width":
			if px, ok := lengthToPx(value, lc); ok && float64(width) > px {
				return false
			}
		case "min-height":
			if px, ok := lengthToPx(value, lc); ok && float64(height) < px {
				return false
			}
		case "max-height":
			if px, ok := lengthToPx(value, lc); ok && float64(height) > px {
				return false
			}
		case "orientation":
			orientation := "portrait"
			if width > height {
				orientation = "landscape"
			}
			if value != "" && value != orientation {
				return false
			}
		case "prefers-color-scheme":
			if value != "" && value != opts.colorScheme() {
				return false
			}
		}
	}
	return true
}

// lengthContext supplies the reference sizes for relative CSS units.
type lengthContext struct {
	percent  float64
	fontSize float64
	vw, vh   float64
}

// lengthToPx converts a CSS length to pixels.
func lengthToPx(val string, lc lengthContext) (float64, bool) {
	v := strings.ToLower(strings.TrimSpace(val))
	if v == "" || v == "auto" {
		return 0, false
	}

	units := []struct {
		suffix string
		scale  float64
	}{
		{"px", 1},
		{"rem", defaultFontSize},
		{"em", lc.fontSize},
		{"vw", lc.vw / 100},
		{"vh", lc.vh / 100},
		{"%", lc.percent / 100},
		{"pt", 4.0 / 3.0},
	}
	for _, u := range units {
		if strings.HasSuffix(v, u.suffix) {
			f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(v, u.suffix)), 64)
			if err != nil {
				return 0, false
			}
			return f * u.scale, true
		}
	}

	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f, true
	}
	return 0, false
}

func getAttr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}
