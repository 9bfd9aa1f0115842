package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/pagetint/internal/dom/snapshot"
)

var (
	//go:embed scripts/snapshot.js
	snapshotJS string

	//go:embed scripts/highlight.js
	highlightJS string

	//go:embed scripts/observer.js
	observerJS string
)

const (
	mutationBinding = "__pagetintMutation"

	// overlayAttribute marks highlight overlay nodes. Captures and the
	// mutation observer ignore them.
	overlayAttribute = "data-pagetint-overlay"

	// keptCaptures is how many captures stay addressable for highlighting.
	keptCaptures = 8
)

// Computed properties recorded for every element and for its ::before and
// ::after boxes.
var (
	elementProperties = []string{
		"color", "background-color", "border-color", "outline-color",
		"box-shadow", "text-decoration-color", "column-rule-color",
		"fill", "stroke", "display", "visibility", "opacity",
		"font-size", "line-height",
	}
	pseudoProperties = []string{"color", "background-color", "content", "display"}
)

// Tab is one browser page.
type Tab struct {
	Page *rod.Page
	URL  string

	// generation is the id of the latest capture held by the page.
	generation atomic.Int64
	logger     hclog.Logger
}

// Open creates a tab, sizes the viewport and navigates to pageURL.
func Open(ctx context.Context, mgr *Manager, pageURL string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("failed to open tab: browser not started")
	}

	var page *rod.Page
	var err error
	if mgr.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create tab: %w", err)
	}

	vp := mgr.cfg.Viewport
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             vp.Width,
		Height:            vp.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		mgr.logger.Warn("failed to set viewport", "error", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, mgr.cfg.NavigationTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("failed to navigate to %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.logger.Warn("page load wait timed out", "url", pageURL, "error", err)
	}

	return &Tab{
		Page:   page,
		URL:    pageURL,
		logger: mgr.logger.With("url", pageURL),
	}, nil
}

type capture struct {
	Generation int               `json:"generation"`
	Snapshot   snapshot.Snapshot `json:"snapshot"`
}

func (t *Tab) capture(ctx context.Context) (*capture, error) {
	res, err := t.Page.Context(ctx).Eval(snapshotJS, elementProperties, pseudoProperties, keptCaptures, overlayAttribute)
	if err != nil {
		return nil, fmt.Errorf("failed to capture page: %w", err)
	}

	c, err := decodeCapture([]byte(res.Value.Str()))
	if err != nil {
		return nil, err
	}

	t.generation.Store(int64(c.Generation))
	t.logger.Debug("captured page", "nodes", len(c.Snapshot.Nodes), "generation", c.Generation)
	return c, nil
}

func decodeCapture(data []byte) (*capture, error) {
	var c capture
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode capture: %w", err)
	}
	if c.Generation <= 0 {
		return nil, fmt.Errorf("capture has no generation")
	}
	if err := c.Snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("invalid capture: %w", err)
	}
	return &c, nil
}

// Snapshot captures the computed state of the page.
func (t *Tab) Snapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	c, err := t.capture(ctx)
	if err != nil {
		return nil, err
	}
	return &c.Snapshot, nil
}

// Highlight scrolls to the node at nodeIndex of the latest capture and
// outlines it for d.
func (t *Tab) Highlight(ctx context.Context, nodeIndex int, d time.Duration) error {
	return t.highlight(ctx, int(t.generation.Load()), nodeIndex, d)
}

func (t *Tab) highlight(ctx context.Context, generation, nodeIndex int, d time.Duration) error {
	res, err := t.Page.Context(ctx).Eval(highlightJS, generation, nodeIndex, d.Milliseconds(), overlayAttribute)
	if err != nil {
		return fmt.Errorf("failed to highlight node %d: %w", nodeIndex, err)
	}
	if !res.Value.Bool() {
		t.logger.Debug("highlight target no longer on page", "node", nodeIndex, "generation", generation)
	}
	return nil
}

// Mutations installs a MutationObserver on the page and reports each batch
// of childList, style or class changes. Notifications are coalesced while
// the receiver is busy. The channel closes when ctx is done.
func (t *Tab) Mutations(ctx context.Context) (<-chan struct{}, error) {
	if err := (proto.RuntimeAddBinding{Name: mutationBinding}).Call(t.Page); err != nil {
		return nil, fmt.Errorf("failed to add mutation binding: %w", err)
	}

	ch := make(chan struct{}, 1)
	wait := t.Page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != mutationBinding {
			return
		}
		select {
		case ch <- struct{}{}:
		default:
		}
	})

	res, err := t.Page.Context(ctx).Eval(observerJS, mutationBinding, overlayAttribute)
	if err != nil {
		return nil, fmt.Errorf("failed to install mutation observer: %w", err)
	}
	if !res.Value.Bool() {
		t.logger.Debug("mutation observer already installed")
	}

	go func() {
		wait()
		close(ch)
	}()
	return ch, nil
}

// Document captures the page as a dom.Document that can highlight its
// elements.
func (t *Tab) Document(ctx context.Context) (*LiveDocument, error) {
	c, err := t.capture(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := snapshot.NewDocument(&c.Snapshot)
	if err != nil {
		return nil, err
	}
	return &LiveDocument{Document: doc, tab: t, generation: c.Generation}, nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page == nil {
		return nil
	}
	return t.Page.Close()
}
