// Package dom defines the read-only view of a rendered document that the
// palette extractor and contrast auditor work against. Implementations live
// in the static (parsed HTML/CSS) and snapshot (captured browser state)
// subpackages.
package dom

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrStyleUnavailable is returned when a computed style cannot be
	// produced for an element or pseudo-element.
	ErrStyleUnavailable = errors.New("computed style unavailable")

	// ErrHighlightUnsupported is returned by documents that are not backed by
	// a live page.
	ErrHighlightUnsupported = errors.New("highlighting requires a live page")
)

// Pseudo selects an element's own style or one of its generated boxes.
type Pseudo string

const (
	PseudoNone   Pseudo = ""
	PseudoBefore Pseudo = "::before"
	PseudoAfter  Pseudo = "::after"
)

// Pseudos lists the generated-content boxes whose colours are sampled.
var Pseudos = []Pseudo{PseudoBefore, PseudoAfter}

// Rect is an element's bounding box in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns Width*Height.
func (r Rect) Area() float64 {
	return r.Width * r.Height
}

// Empty reports whether either dimension is zero.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Style is a computed style. Get returns the empty string for properties
// that have no value, including unset custom properties.
type Style interface {
	Get(property string) string
}

// StyleMap is a Style backed by a map of property name to computed value.
type StyleMap map[string]string

// Get implements Style.
func (m StyleMap) Get(property string) string {
	return m[property]
}

// Element is a node in the rendered element tree.
type Element interface {
	// Tag returns the lowercase tag name.
	Tag() string
	ID() string
	Classes() []string
	Attr(name string) (string, bool)

	// Parent returns the parent element, or nil for the document root.
	Parent() Element

	// Text returns the concatenated text content of the element's subtree.
	Text() string
	Rect() Rect

	// Style returns the computed style of the element or of one of its
	// generated boxes.
	Style(pseudo Pseudo) (Style, error)
}

// Document is a rendered page.
type Document interface {
	// Elements returns every element in document order.
	Elements() []Element

	// Root returns the document element (<html>).
	Root() Element

	// Body returns the <body> element, or nil when there is none.
	Body() Element
}

// Highlighter is implemented by documents backed by a live page that can
// draw attention to an element.
type Highlighter interface {
	Highlight(ctx context.Context, el Element, d time.Duration) error
}

// ComputedStyle returns the element's own computed style, or nil if it
// cannot be obtained.
func ComputedStyle(el Element) Style {
	st, err := el.Style(PseudoNone)
	if err != nil {
		return nil
	}
	return st
}
