package analyzer

import (
	"context"
	"fmt"

	"github.com/jmylchreest/pagetint/internal/dom"
	"github.com/jmylchreest/pagetint/internal/dom/snapshot"
	"github.com/jmylchreest/pagetint/internal/dom/static"
	httputil "github.com/jmylchreest/pagetint/internal/util/http"
)

// Source produces the current state of a page. Every call returns a fresh
// document; live sources re-capture the page.
type Source interface {
	Document(ctx context.Context) (dom.Document, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (dom.Document, error)

// Document implements Source.
func (f SourceFunc) Document(ctx context.Context) (dom.Document, error) {
	return f(ctx)
}

// MutationSource is implemented by sources that can report page changes.
type MutationSource interface {
	Mutations(ctx context.Context) (<-chan struct{}, error)
}

// Fixed always returns doc.
func Fixed(doc dom.Document) Source {
	return SourceFunc(func(context.Context) (dom.Document, error) {
		return doc, nil
	})
}

// StaticFile renders an HTML file without a browser.
func StaticFile(path string, opts static.Options) Source {
	return SourceFunc(func(ctx context.Context) (dom.Document, error) {
		return static.Load(ctx, path, opts)
	})
}

// StaticURL downloads and renders a page without a browser.
func StaticURL(url string, fetch httputil.FetchOptions, opts static.Options) Source {
	return SourceFunc(func(ctx context.Context) (dom.Document, error) {
		return static.Fetch(ctx, url, fetch, opts)
	})
}

// SnapshotFile reads a captured page. The file is re-read on every call.
func SnapshotFile(path string) Source {
	return SourceFunc(func(context.Context) (dom.Document, error) {
		snap, err := snapshot.Load(path)
		if err != nil {
			return nil, err
		}
		doc, err := snapshot.NewDocument(snap)
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshot %s: %w", path, err)
		}
		return doc, nil
	})
}
