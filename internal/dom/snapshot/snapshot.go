// Package snapshot holds the computed state of a page captured from a real
// browser. A Snapshot is plain JSON so a live page can be captured once and
// analysed offline any number of times.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jmylchreest/pagetint/internal/dom"
)

// Viewport is the browser window size at capture time.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Node is one captured element. Parent is the index of the parent node in
// Snapshot.Nodes, or -1 for the document element.
type Node struct {
	Tag    string            `json:"tag"`
	Parent int               `json:"parent"`
	Attrs  map[string]string `json:"attrs,omitempty"`
	Rect   dom.Rect          `json:"rect"`
	Text   string            `json:"text,omitempty"`

	// Styles maps "" (the element itself), "::before" and "::after" to
	// computed property values.
	Styles map[dom.Pseudo]map[string]string `json:"styles"`
}

// Snapshot is a captured page.
type Snapshot struct {
	URL        string    `json:"url"`
	Title      string    `json:"title,omitempty"`
	CapturedAt time.Time `json:"capturedAt"`
	Viewport   Viewport  `json:"viewport"`
	Nodes      []Node    `json:"nodes"`

	// Root and Body are indexes into Nodes. Body is -1 when the page has no
	// body element.
	Root int `json:"root"`
	Body int `json:"body"`
}

// Validate checks that parent, root and body indexes refer to earlier nodes.
func (s *Snapshot) Validate() error {
	if len(s.Nodes) == 0 {
		return fmt.Errorf("snapshot has no nodes")
	}
	if s.Root < 0 || s.Root >= len(s.Nodes) {
		return fmt.Errorf("root index %d out of range", s.Root)
	}
	if s.Body < -1 || s.Body >= len(s.Nodes) {
		return fmt.Errorf("body index %d out of range", s.Body)
	}
	for i, n := range s.Nodes {
		if n.Parent < -1 || n.Parent >= i {
			return fmt.Errorf("node %d (%s): parent index %d must precede it", i, n.Tag, n.Parent)
		}
	}
	return nil
}

// Decode reads a snapshot from JSON.
func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	return &s, nil
}

// Encode writes the snapshot as indented JSON.
func (s *Snapshot) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot file.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Save writes the snapshot to path.
func (s *Snapshot) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	if err := s.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Document exposes a Snapshot through the dom interfaces.
type Document struct {
	snap     *Snapshot
	elements []*Element
	all      []dom.Element
}

var _ dom.Document = (*Document)(nil)

// NewDocument builds the element tree for a validated snapshot.
func NewDocument(s *Snapshot) (*Document, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	d := &Document{
		snap:     s,
		elements: make([]*Element, len(s.Nodes)),
		all:      make([]dom.Element, len(s.Nodes)),
	}
	for i := range s.Nodes {
		el := &Element{node: &s.Nodes[i], index: i}
		if p := s.Nodes[i].Parent; p >= 0 {
			el.parent = d.elements[p]
		}
		d.elements[i] = el
		d.all[i] = el
	}
	return d, nil
}

// Snapshot returns the underlying capture.
func (d *Document) Snapshot() *Snapshot {
	return d.snap
}

// Elements implements dom.Document.
func (d *Document) Elements() []dom.Element {
	return d.all
}

// Root implements dom.Document.
func (d *Document) Root() dom.Element {
	return d.elements[d.snap.Root]
}

// Body implements dom.Document.
func (d *Document) Body() dom.Element {
	if d.snap.Body < 0 {
		return nil
	}
	return d.elements[d.snap.Body]
}

// Element is a captured element.
type Element struct {
	node   *Node
	index  int
	parent *Element
}

var _ dom.Element = (*Element)(nil)

// Index returns the element's position in the capture, which is also its
// position in the element list the page kept for that capture.
func (e *Element) Index() int {
	return e.index
}

func (e *Element) Tag() string {
	return strings.ToLower(e.node.Tag)
}

func (e *Element) ID() string {
	return e.node.Attrs["id"]
}

func (e *Element) Classes() []string {
	return strings.Fields(e.node.Attrs["class"])
}

func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.node.Attrs[strings.ToLower(name)]
	return v, ok
}

func (e *Element) Parent() dom.Element {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

func (e *Element) Text() string {
	return e.node.Text
}

func (e *Element) Rect() dom.Rect {
	return e.node.Rect
}

// Style implements dom.Element. Pseudo-elements the browser did not report
// are unavailable.
func (e *Element) Style(pseudo dom.Pseudo) (dom.Style, error) {
	st, ok := e.node.Styles[pseudo]
	if !ok {
		return nil, fmt.Errorf("%w: node %d%s", dom.ErrStyleUnavailable, e.index, pseudo)
	}
	return dom.StyleMap(st), nil
}
