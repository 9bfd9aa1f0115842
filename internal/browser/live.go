package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/jmylchreest/pagetint/internal/dom"
	"github.com/jmylchreest/pagetint/internal/dom/snapshot"
)

// LiveDocument is a capture that still has its page attached, so issues
// found in it can be highlighted.
type LiveDocument struct {
	*snapshot.Document

	tab        *Tab
	generation int
}

var (
	_ dom.Document    = (*LiveDocument)(nil)
	_ dom.Highlighter = (*LiveDocument)(nil)
)

// Highlight implements dom.Highlighter.
func (d *LiveDocument) Highlight(ctx context.Context, el dom.Element, dur time.Duration) error {
	se, ok := el.(*snapshot.Element)
	if !ok {
		return fmt.Errorf("element %T was not captured from a live page", el)
	}
	return d.tab.highlight(ctx, d.generation, se.Index(), dur)
}

// Source reads a tab as a sequence of live documents.
type Source struct {
	Tab *Tab
}

// Document captures the tab.
func (s Source) Document(ctx context.Context) (dom.Document, error) {
	doc, err := s.Tab.Document(ctx)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Mutations reports page changes.
func (s Source) Mutations(ctx context.Context) (<-chan struct{}, error) {
	return s.Tab.Mutations(ctx)
}
