package server

import (
	"context"
	"fmt"
	"io"

	"github.com/jmylchreest/pagetint/internal/analyzer"
	"github.com/jmylchreest/pagetint/internal/browser"
	"github.com/jmylchreest/pagetint/internal/dom/static"
	httputil "github.com/jmylchreest/pagetint/internal/util/http"
)

// Source kinds accepted when creating a session.
const (
	SourceStatic = "static"
	SourceLive   = "live"
)

// OpenFunc resolves a page URL to a session source. The returned closer, if
// any, is called when the session ends.
type OpenFunc func(ctx context.Context, url, kind string) (analyzer.Source, io.Closer, error)

// Sources opens static pages over HTTP and live pages in Chrome.
type Sources struct {
	Fetch  httputil.FetchOptions
	Static static.Options

	// Browser serves live sessions. Live sessions are refused when nil.
	Browser *browser.Manager
}

// Open implements OpenFunc.
func (s Sources) Open(ctx context.Context, url, kind string) (analyzer.Source, io.Closer, error) {
	switch kind {
	case "", SourceStatic:
		return analyzer.StaticURL(url, s.Fetch, s.Static), nil, nil
	case SourceLive:
		if s.Browser == nil {
			return nil, nil, fmt.Errorf("live sessions are disabled")
		}
		tab, err := browser.Open(ctx, s.Browser, url)
		if err != nil {
			return nil, nil, err
		}
		return browser.Source{Tab: tab}, tab, nil
	default:
		return nil, nil, fmt.Errorf("unknown source %q", kind)
	}
}
