package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jmylchreest/pagetint/internal/analyzer"
	"github.com/jmylchreest/pagetint/internal/browser"
)

// Source kinds accepted by --source.
const (
	sourceAuto     = "auto"
	sourceStatic   = "static"
	sourceLive     = "live"
	sourceSnapshot = "snapshot"
)

// page is an opened page target.
type page struct {
	Source analyzer.Source
	Kind   string
	URL    string

	tab *browser.Tab
	mgr *browser.Manager
}

// Close releases the tab and browser of a live page.
func (p *page) Close() {
	if p.tab != nil {
		if err := p.tab.Close(); err != nil {
			logger.Debug("failed to close tab", "error", err)
		}
	}
	if p.mgr != nil {
		if err := p.mgr.Close(); err != nil {
			logger.Warn("failed to close browser", "error", err)
		}
	}
}

func addSourceFlag(fs *pflag.FlagSet, dst *string) {
	fs.StringVarP(dst, "source", "s", sourceAuto, "page source (auto, static, live, snapshot)")
}

func isURL(target string) bool {
	u, err := url.Parse(target)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// resolveKind picks a source for target. Auto treats URLs as static pages,
// .json files as snapshots and other files as HTML.
func resolveKind(target, kind string) (string, error) {
	switch kind {
	case "", sourceAuto:
		if isURL(target) {
			return sourceStatic, nil
		}
		if strings.EqualFold(filepath.Ext(target), ".json") {
			return sourceSnapshot, nil
		}
		return sourceStatic, nil
	case sourceStatic, sourceSnapshot:
		return kind, nil
	case sourceLive:
		if !isURL(target) {
			return "", fmt.Errorf("live source requires an http(s) URL, got %q", target)
		}
		return kind, nil
	default:
		return "", fmt.Errorf("unknown source %q (valid: auto, static, live, snapshot)", kind)
	}
}

// openPage resolves target to a source. Live pages start Chrome and must be
// closed.
func openPage(ctx context.Context, target, kind string) (*page, error) {
	kind, err := resolveKind(target, kind)
	if err != nil {
		return nil, err
	}

	p := &page{Kind: kind, URL: target}
	switch kind {
	case sourceSnapshot:
		p.Source = analyzer.SnapshotFile(target)
	case sourceStatic:
		if isURL(target) {
			p.Source = analyzer.StaticURL(target, cfg.FetchOptions(), cfg.StaticOptions(logger.Named("static")))
		} else {
			if _, err := os.Stat(target); err != nil {
				return nil, fmt.Errorf("failed to open page: %w", err)
			}
			p.Source = analyzer.StaticFile(target, cfg.StaticOptions(logger.Named("static")))
		}
	case sourceLive:
		verbosef("Starting browser...")
		p.mgr = browser.NewManager(cfg.BrowserConfig(logger))
		if err := p.mgr.Start(ctx); err != nil {
			return nil, err
		}
		verbosef("Loading %s", target)
		if p.tab, err = browser.Open(ctx, p.mgr, target); err != nil {
			p.Close()
			return nil, err
		}
		p.Source = browser.Source{Tab: p.tab}
	}
	return p, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// output returns the writer for --output, stdout when empty.
func output(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}
