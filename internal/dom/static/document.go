// Package static renders an HTML document without a browser. It parses the
// markup with x/net/html, cascades author CSS with douceur and cascadia,
// computes the subset of style properties pagetint reads and estimates element
// boxes with a simple block layout.
package static

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/net/html"

	"github.com/jmylchreest/pagetint/internal/dom"
	httputil "github.com/jmylchreest/pagetint/internal/util/http"
)

const (
	// DefaultViewportWidth is the layout width used when none is configured.
	DefaultViewportWidth = 1280

	// DefaultViewportHeight is the height used for media queries and vh units.
	DefaultViewportHeight = 800
)

// Fetcher retrieves a linked resource such as a stylesheet.
type Fetcher func(ctx context.Context, url string) ([]byte, error)

// Options configures document loading.
type Options struct {
	ViewportWidth  int
	ViewportHeight int

	// ColorScheme is matched against prefers-color-scheme ("light" or "dark").
	ColorScheme string

	// BaseURL resolves relative stylesheet links.
	BaseURL string

	// Fetcher loads linked stylesheets. When nil, only inline <style>
	// blocks and style attributes are applied.
	Fetcher Fetcher

	Logger hclog.Logger
}

func (o Options) viewport() (int, int) {
	w, h := o.ViewportWidth, o.ViewportHeight
	if w <= 0 {
		w = DefaultViewportWidth
	}
	if h <= 0 {
		h = DefaultViewportHeight
	}
	return w, h
}

func (o Options) colorScheme() string {
	if o.ColorScheme == "" {
		return "light"
	}
	return strings.ToLower(o.ColorScheme)
}

// HTTPFetcher returns a Fetcher backed by the shared HTTP client.
func HTTPFetcher(opts httputil.FetchOptions) Fetcher {
	return func(ctx context.Context, url string) ([]byte, error) {
		return httputil.Fetch(ctx, url, opts)
	}
}

// Document is a statically rendered HTML document.
type Document struct {
	root     *Element
	body     *Element
	elements []dom.Element
}

var (
	_ dom.Document    = (*Document)(nil)
	_ dom.Highlighter = (*Document)(nil)
)

// Elements implements dom.Document.
func (d *Document) Elements() []dom.Element {
	return d.elements
}

// Root implements dom.Document.
func (d *Document) Root() dom.Element {
	if d.root == nil {
		return nil
	}
	return d.root
}

// Body implements dom.Document.
func (d *Document) Body() dom.Element {
	if d.body == nil {
		return nil
	}
	return d.body
}

// Element is an element of a static Document.
type Element struct {
	node     *html.Node
	parent   *Element
	children []*Element

	styles map[dom.Pseudo]dom.StyleMap
	rect   dom.Rect

	textOnce sync.Once
	text     string
}

var _ dom.Element = (*Element)(nil)

// Tag implements dom.Element.
func (e *Element) Tag() string {
	return strings.ToLower(e.node.Data)
}

// ID implements dom.Element.
func (e *Element) ID() string {
	return getAttr(e.node, "id")
}

// Classes implements dom.Element.
func (e *Element) Classes() []string {
	return strings.Fields(getAttr(e.node, "class"))
}

// Attr implements dom.Element.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

// Parent implements dom.Element.
func (e *Element) Parent() dom.Element {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

// Text implements dom.Element.
func (e *Element) Text() string {
	e.textOnce.Do(func() {
		var b strings.Builder
		collectText(e.node, &b)
		e.text = b.String()
	})
	return e.text
}

// Rect implements dom.Element.
func (e *Element) Rect() dom.Rect {
	return e.rect
}

// Style implements dom.Element.
func (e *Element) Style(pseudo dom.Pseudo) (dom.Style, error) {
	st, ok := e.styles[pseudo]
	if !ok {
		return nil, fmt.Errorf("%w: %s%s", dom.ErrStyleUnavailable, e.Tag(), pseudo)
	}
	return st, nil
}

func collectText(n *html.Node, b *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
		case html.ElementNode:
			collectText(c, b)
		}
	}
}

// Parse reads an HTML document and renders it.
func Parse(ctx context.Context, r io.Reader, opts Options) (*Document, error) {
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}

	node, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc := &Document{}
	var build func(n *html.Node, parent *Element)
	build = func(n *html.Node, parent *Element) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			el := &Element{node: c, parent: parent}
			doc.elements = append(doc.elements, el)
			if parent != nil {
				parent.children = append(parent.children, el)
			}
			switch {
			case parent == nil && doc.root == nil:
				doc.root = el
			case el.Tag() == "body" && doc.body == nil:
				doc.body = el
			}
			build(c, el)
		}
	}
	build(node, nil)

	if doc.root == nil {
		return nil, fmt.Errorf("document has no root element")
	}

	ss := buildStylesheet(ctx, node, opts)
	opts.Logger.Debug("stylesheet built", "rules", len(ss.rules), "elements", len(doc.elements))

	computeStyles(doc.root, ss)
	layout(doc.root, opts)

	return doc, nil
}

// ParseString renders an HTML string.
func ParseString(ctx context.Context, markup string, opts Options) (*Document, error) {
	return Parse(ctx, strings.NewReader(markup), opts)
}

// Load renders an HTML file from disk.
func Load(ctx context.Context, path string, opts Options) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return Parse(ctx, f, opts)
}

// Fetch downloads an HTML page and renders it. Linked stylesheets are
// fetched too unless opts.Fetcher is already set.
func Fetch(ctx context.Context, url string, fetch httputil.FetchOptions, opts Options) (*Document, error) {
	body, err := httputil.Fetch(ctx, url, fetch)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	if opts.BaseURL == "" {
		opts.BaseURL = url
	}
	if opts.Fetcher == nil {
		opts.Fetcher = HTTPFetcher(fetch)
	}

	return Parse(ctx, bytes.NewReader(body), opts)
}

// Highlight implements dom.Highlighter. Static documents have no page to draw
// on.
func (d *Document) Highlight(context.Context, dom.Element, time.Duration) error {
	return dom.ErrHighlightUnsupported
}
