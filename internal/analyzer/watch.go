package analyzer

import (
	"context"
	"time"
)

const (
	// DefaultSettleDelay is the wait before the first extraction, giving
	// asynchronously loaded content time to appear.
	DefaultSettleDelay = time.Second

	// DefaultQuietWindow is how long the page must stay unchanged before a
	// mutation burst triggers a recomputation.
	DefaultQuietWindow = 2 * time.Second
)

// WatchOptions configures Watch.
type WatchOptions struct {
	SettleDelay time.Duration
	QuietWindow time.Duration

	// EmitOnChange sends an event after every recomputation, not only after
	// the initial extraction.
	EmitOnChange bool
}

func (o *WatchOptions) defaults() {
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
	if o.QuietWindow <= 0 {
		o.QuietWindow = DefaultQuietWindow
	}
}

// Watch extracts the palette once the page has settled and emits it, then
// re-extracts whenever mutations stop arriving for a quiet window. Each
// mutation restarts the window; an extraction already running is never
// interrupted. Watch returns when ctx is done.
func (a *Analyzer) Watch(ctx context.Context, mutations <-chan struct{}, opts WatchOptions, emit func(Event)) error {
	opts.defaults()

	settle := time.NewTimer(opts.SettleDelay)
	defer settle.Stop()

	var quiet *time.Timer
	var quietC <-chan time.Time
	defer func() {
		if quiet != nil {
			quiet.Stop()
		}
	}()

	run := func(send bool) {
		colours, err := a.Extract(ctx)
		if err != nil {
			if ctx.Err() == nil {
				a.logger.Warn("palette extraction failed", "error", err)
			}
			return
		}
		a.logger.Debug("palette recomputed", "colours", len(colours), "emit", send)
		if send && emit != nil {
			emit(Event{Action: ActionColorsExtracted, Colors: colours})
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-settle.C:
			run(true)

		case _, ok := <-mutations:
			if !ok {
				mutations = nil
				continue
			}
			if quiet != nil {
				quiet.Stop()
			}
			quiet = time.NewTimer(opts.QuietWindow)
			quietC = quiet.C

		case <-quietC:
			quiet, quietC = nil, nil
			run(opts.EmitOnChange)
		}
	}
}
