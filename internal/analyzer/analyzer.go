// Package analyzer ties a page source to the palette extractor and the
// contrast auditor. An Analyzer is one session: it owns the latest palette
// and the latest audit so highlight requests can be resolved against them.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/pagetint/internal/colour"
	"github.com/jmylchreest/pagetint/internal/contrast"
	"github.com/jmylchreest/pagetint/internal/dom"
	"github.com/jmylchreest/pagetint/internal/extract"
)

// DefaultHighlightDuration is how long a highlight overlay stays visible.
const DefaultHighlightDuration = 3 * time.Second

// Options configures an Analyzer.
type Options struct {
	Extract extract.Options
	Audit   contrast.Options

	// Panel is the coarser collapse applied before classification. The zero
	// value means colour.PanelPolicy.
	Panel colour.CollapsePolicy

	HighlightDuration time.Duration

	Logger hclog.Logger
}

// DefaultOptions returns the standard session options.
func DefaultOptions() Options {
	return Options{
		Extract:           extract.DefaultOptions(),
		Panel:             colour.PanelPolicy,
		HighlightDuration: DefaultHighlightDuration,
	}
}

// Analyzer is an analysis session over one page.
type Analyzer struct {
	id        string
	source    Source
	extractor *extract.Extractor
	auditor   *contrast.Auditor
	panel     colour.CollapsePolicy
	highlight time.Duration
	logger    hclog.Logger

	mu         sync.Mutex
	colours    []colour.WeightedColour
	classified *colour.ClassifiedPalette
	result     *contrast.Result
	auditDoc   dom.Document
}

// New creates a session reading from source.
func New(source Source, opts Options) *Analyzer {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if opts.Panel == (colour.CollapsePolicy{}) {
		opts.Panel = colour.PanelPolicy
	}
	if opts.HighlightDuration <= 0 {
		opts.HighlightDuration = DefaultHighlightDuration
	}

	id := uuid.NewString()
	logger = logger.With("session", id)

	return &Analyzer{
		id:        id,
		source:    source,
		extractor: extract.New(opts.Extract, logger.Named("extract")),
		auditor:   contrast.NewAuditor(opts.Audit, logger.Named("contrast")),
		panel:     opts.Panel,
		highlight: opts.HighlightDuration,
		logger:    logger,
	}
}

// ID returns the session identifier.
func (a *Analyzer) ID() string {
	return a.id
}

func (a *Analyzer) document(ctx context.Context) (dom.Document, error) {
	doc, err := a.source.Document(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return doc, nil
}

// Extract reads the page and returns the collapsed palette. The result
// replaces the session's cached palette.
func (a *Analyzer) Extract(ctx context.Context) ([]colour.WeightedColour, error) {
	doc, err := a.document(ctx)
	if err != nil {
		return nil, err
	}
	return a.ExtractDocument(doc), nil
}

// ExtractDocument extracts from an already loaded document.
func (a *Analyzer) ExtractDocument(doc dom.Document) []colour.WeightedColour {
	colours := a.extractor.Extract(doc)

	a.mu.Lock()
	a.colours = colours
	a.classified = nil
	a.mu.Unlock()

	return colours
}

// Colours returns the most recently extracted palette.
func (a *Analyzer) Colours() []colour.WeightedColour {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.colours
}

// Classify assigns roles to the session's palette, extracting first when
// nothing has been extracted yet. The classification is cached until the
// next extraction.
func (a *Analyzer) Classify(ctx context.Context) (colour.ClassifiedPalette, error) {
	a.mu.Lock()
	cached, colours := a.classified, a.colours
	a.mu.Unlock()

	if cached != nil {
		return *cached, nil
	}

	if colours == nil {
		var err error
		if colours, err = a.Extract(ctx); err != nil {
			return colour.ClassifiedPalette{}, err
		}
	}

	p := colour.Classify(colour.Collapse(colours, a.panel))

	a.mu.Lock()
	a.classified = &p
	a.mu.Unlock()

	return p, nil
}

// ScanContrast audits the page. The result replaces the previous one, so
// element indexes from earlier audits stop resolving.
func (a *Analyzer) ScanContrast(ctx context.Context) (*contrast.Result, error) {
	doc, err := a.document(ctx)
	if err != nil {
		return nil, err
	}
	return a.AuditDocument(doc), nil
}

// AuditDocument audits an already loaded document.
func (a *Analyzer) AuditDocument(doc dom.Document) *contrast.Result {
	res := a.auditor.Audit(doc)

	a.mu.Lock()
	a.result = res
	a.auditDoc = doc
	a.mu.Unlock()

	return res
}

// Result returns the latest audit, or nil.
func (a *Analyzer) Result() *contrast.Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result
}

// Highlight draws attention to the element behind an issue of the latest
// audit. An index that does not resolve is ignored. Documents that cannot
// draw return dom.ErrHighlightUnsupported.
func (a *Analyzer) Highlight(ctx context.Context, index int) error {
	a.mu.Lock()
	res, doc := a.result, a.auditDoc
	a.mu.Unlock()

	el, ok := res.Element(index)
	if !ok {
		a.logger.Debug("highlight index out of range", "index", index)
		return nil
	}

	h, ok := doc.(dom.Highlighter)
	if !ok {
		return dom.ErrHighlightUnsupported
	}
	if err := h.Highlight(ctx, el, a.highlight); err != nil {
		if errors.Is(err, dom.ErrHighlightUnsupported) {
			return err
		}
		return fmt.Errorf("failed to highlight element %d: %w", index, err)
	}
	return nil
}
