// Package domtest provides in-memory documents for tests.
package domtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmylchreest/pagetint/internal/dom"
)

// Element is a hand-built dom.Element. Styles holds the computed style of
// the element under dom.PseudoNone and of any generated boxes; a missing
// entry makes Style return dom.ErrStyleUnavailable.
type Element struct {
	TagName  string
	Attrs    map[string]string
	Box      dom.Rect
	Content  string
	Styles   map[dom.Pseudo]dom.StyleMap
	ParentEl *Element
}

var _ dom.Element = (*Element)(nil)

// NewElement creates an element with the given own style.
func NewElement(tag string, rect dom.Rect, style dom.StyleMap) *Element {
	return &Element{
		TagName: tag,
		Box:     rect,
		Styles:  map[dom.Pseudo]dom.StyleMap{dom.PseudoNone: style},
	}
}

// WithAttr sets an attribute and returns e.
func (e *Element) WithAttr(name, value string) *Element {
	if e.Attrs == nil {
		e.Attrs = map[string]string{}
	}
	e.Attrs[name] = value
	return e
}

// WithText sets the text content and returns e.
func (e *Element) WithText(text string) *Element {
	e.Content = text
	return e
}

// WithPseudo sets the style of a generated box and returns e.
func (e *Element) WithPseudo(p dom.Pseudo, style dom.StyleMap) *Element {
	e.Styles[p] = style
	return e
}

func (e *Element) Tag() string       { return e.TagName }
func (e *Element) ID() string        { return e.Attrs["id"] }
func (e *Element) Classes() []string { return strings.Fields(e.Attrs["class"]) }
func (e *Element) Text() string      { return e.Content }
func (e *Element) Rect() dom.Rect    { return e.Box }

func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

func (e *Element) Parent() dom.Element {
	if e.ParentEl == nil {
		return nil
	}
	return e.ParentEl
}

func (e *Element) Style(p dom.Pseudo) (dom.Style, error) {
	st, ok := e.Styles[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s%s", dom.ErrStyleUnavailable, e.TagName, p)
	}
	return st, nil
}

// Document is a dom.Document over a fixed element list. Root and Body are
// optional.
type Document struct {
	RootEl *Element
	BodyEl *Element
	Els    []*Element

	mu          sync.Mutex
	highlighted []dom.Element
}

var (
	_ dom.Document    = (*Document)(nil)
	_ dom.Highlighter = (*Document)(nil)
)

// NewDocument builds a document with an html root and body. Elements
// without a parent become children of body.
func NewDocument(els ...*Element) *Document {
	root := NewElement("html", dom.Rect{Width: 1280, Height: 800}, dom.StyleMap{})
	body := NewElement("body", dom.Rect{Width: 1280, Height: 800}, dom.StyleMap{})
	body.ParentEl = root
	for _, el := range els {
		if el.ParentEl == nil {
			el.ParentEl = body
		}
	}
	return &Document{RootEl: root, BodyEl: body, Els: els}
}

// Elements returns the root, the body and the added elements.
func (d *Document) Elements() []dom.Element {
	var out []dom.Element
	if d.RootEl != nil {
		out = append(out, d.RootEl)
	}
	if d.BodyEl != nil {
		out = append(out, d.BodyEl)
	}
	for _, el := range d.Els {
		out = append(out, el)
	}
	return out
}

func (d *Document) Root() dom.Element {
	if d.RootEl == nil {
		return nil
	}
	return d.RootEl
}

func (d *Document) Body() dom.Element {
	if d.BodyEl == nil {
		return nil
	}
	return d.BodyEl
}

// Highlight records el.
func (d *Document) Highlight(_ context.Context, el dom.Element, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.highlighted = append(d.highlighted, el)
	return nil
}

// Highlighted returns the elements passed to Highlight, in call order.
func (d *Document) Highlighted() []dom.Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]dom.Element(nil), d.highlighted...)
}
