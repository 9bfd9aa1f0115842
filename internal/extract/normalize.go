package extract

import (
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/pagetint/internal/colour"
	"github.com/jmylchreest/pagetint/internal/dom"
)

// maxResolveDepth bounds nested custom property resolution.
const maxResolveDepth = 8

// Normalizer converts computed colour strings into canonical hex, resolving
// custom property references against the originating element, then the
// document root, then the body.
type Normalizer struct {
	root   dom.Element
	body   dom.Element
	logger hclog.Logger
}

// NewNormalizer creates a Normalizer for elements of doc.
func NewNormalizer(doc dom.Document, logger hclog.Logger) *Normalizer {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	n := &Normalizer{logger: logger}
	if doc != nil {
		n.root = doc.Root()
		n.body = doc.Body()
	}
	return n
}

// Normalize returns the canonical #RRGGBB form of raw. It reports false for
// transparent and zero-alpha colours, unresolvable references and anything
// that is not a colour. Partial alpha is ignored.
func (n *Normalizer) Normalize(raw string, el dom.Element) (colour.Hex, bool) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", false
	}

	if strings.Contains(v, "var(") {
		resolved, ok := n.resolve(v, el, map[string]bool{}, 0)
		if !ok {
			n.logger.Trace("unresolved custom property", "value", v)
			return "", false
		}
		v = strings.TrimSpace(resolved)
	}

	if strings.EqualFold(v, "currentcolor") {
		if el == nil {
			return "", false
		}
		st := dom.ComputedStyle(el)
		if st == nil {
			return "", false
		}
		v = st.Get("color")
	}

	c, err := colour.ParseCSS(v)
	if err != nil {
		// Multi-valued properties such as a four-sided border-color report
		// their first colour.
		var ok bool
		if c, ok = firstColour(v); !ok {
			n.logger.Trace("not a colour", "value", v, "error", err)
			return "", false
		}
	}
	if c.Transparent() {
		return "", false
	}
	return c.Hex(), true
}

// ResolveVariables substitutes every var() reference in raw. References that
// cannot be resolved are left in place.
func (n *Normalizer) ResolveVariables(raw string, el dom.Element) string {
	out, _ := n.resolve(raw, el, map[string]bool{}, 0)
	return out
}

// resolve substitutes var() references. The boolean is false when any
// reference was left unresolved.
func (n *Normalizer) resolve(raw string, el dom.Element, visiting map[string]bool, depth int) (string, bool) {
	if !strings.Contains(raw, "var(") {
		return raw, true
	}
	if depth >= maxResolveDepth {
		return raw, false
	}

	var b strings.Builder
	ok := true
	rest := raw
	for {
		i := strings.Index(rest, "var(")
		if i < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:i])

		ref, parsed := parseVarRef(rest[i:])
		if !parsed {
			b.WriteString(rest[i:])
			ok = false
			break
		}

		if val, found := n.lookup(ref.name, el, visiting, depth); found {
			b.WriteString(val)
		} else if ref.hasFallback {
			fb, fok := n.resolve(ref.fallback, el, visiting, depth+1)
			b.WriteString(fb)
			ok = ok && fok
		} else {
			b.WriteString(rest[i : i+ref.end])
			ok = false
		}
		rest = rest[i+ref.end:]
	}
	return b.String(), ok
}

// lookup reads a custom property from the element, the root and the body in
// that order. A name already being resolved is a cycle and never found.
func (n *Normalizer) lookup(name string, el dom.Element, visiting map[string]bool, depth int) (string, bool) {
	if visiting[name] {
		n.logger.Trace("custom property cycle", "name", name)
		return "", false
	}

	for _, scope := range []dom.Element{el, n.root, n.body} {
		if scope == nil {
			continue
		}
		st := dom.ComputedStyle(scope)
		if st == nil {
			continue
		}
		v := strings.TrimSpace(st.Get(name))
		if v == "" {
			continue
		}

		visiting[name] = true
		resolved, ok := n.resolve(v, el, visiting, depth+1)
		delete(visiting, name)
		if !ok {
			return "", false
		}
		return strings.TrimSpace(resolved), true
	}
	return "", false
}

type varRef struct {
	name        string
	fallback    string
	hasFallback bool
	end         int
}

// parseVarRef parses the var() call at the start of s, honouring nested
// parentheses in the fallback.
func parseVarRef(s string) (varRef, bool) {
	const open = len("var(")
	depth := 1
	comma := -1
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				ref := varRef{end: i + 1}
				inner := s[open:i]
				if comma >= 0 {
					ref.name = strings.TrimSpace(inner[:comma-open])
					ref.fallback = strings.TrimSpace(inner[comma-open+1:])
					ref.hasFallback = true
				} else {
					ref.name = strings.TrimSpace(inner)
				}
				return ref, strings.HasPrefix(ref.name, "--")
			}
		case ',':
			if depth == 1 && comma < 0 {
				comma = i
			}
		}
	}
	return varRef{}, false
}

// firstColour returns the first whitespace-separated token of v that parses
// as a colour.
func firstColour(v string) (colour.CSSColour, bool) {
	depth, start := 0, -1
	try := func(tok string) (colour.CSSColour, bool) {
		c, err := colour.ParseCSS(tok)
		return c, err == nil
	}
	for i, r := range v {
		switch {
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == ' ' && depth == 0:
			if start >= 0 {
				if c, ok := try(v[start:i]); ok {
					return c, true
				}
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		return try(v[start:])
	}
	return colour.CSSColour{}, false
}
