package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/pagetint/internal/analyzer"
	"github.com/jmylchreest/pagetint/internal/contrast"
	"github.com/jmylchreest/pagetint/internal/dom"
	"github.com/jmylchreest/pagetint/internal/store"
)

var (
	// Audit command flags
	auditSource    string
	auditFormat    string
	auditOutput    string
	auditPreview   bool
	auditThreshold float64
	auditMax       int
	auditHighlight int
	auditSave      bool
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit <url|file>",
	Short: "Find text that fails WCAG AA contrast",
	Long: `Scan the text elements of a page and report those whose colour does not
reach the contrast ratio against the background they are drawn on.

The effective background is found by walking up the element's ancestors to
the first opaque background colour, falling back to white.

Examples:
  # Static audit
  pagetint audit https://example.com

  # Audit in Chrome and outline the first issue
  pagetint audit --source live --highlight 0 https://example.com

  # Stricter AAA threshold, JSON output
  pagetint audit --threshold 7 --format json page.html`,
	Args: cobra.ExactArgs(1),
	RunE: runAudit,
}

func init() {
	addSourceFlag(auditCmd.Flags(), &auditSource)
	auditCmd.Flags().StringVarP(&auditFormat, "format", "f", "table", "output format (table, json)")
	auditCmd.Flags().StringVarP(&auditOutput, "output", "o", "", "output file (default: stdout)")
	auditCmd.Flags().BoolVar(&auditPreview, "preview", false, "show colour samples in terminal")
	auditCmd.Flags().Float64Var(&auditThreshold, "threshold", 0, "minimum contrast ratio (default from config)")
	auditCmd.Flags().IntVar(&auditMax, "max-issues", 0, "maximum issues to report (default from config)")
	auditCmd.Flags().IntVar(&auditHighlight, "highlight", -1, "outline the element of this issue index (live source only)")
	auditCmd.Flags().BoolVar(&auditSave, "save", false, "record the issues in the history database")
}

func runAudit(cmd *cobra.Command, args []string) error {
	if auditFormat != "table" && auditFormat != "json" {
		return fmt.Errorf("unsupported format: %s (supported: table, json)", auditFormat)
	}

	opts := cfg.AnalyzerOptions(logger)
	if auditThreshold > 0 {
		opts.Audit.Threshold = auditThreshold
	}
	if auditMax > 0 {
		opts.Audit.MaxIssues = auditMax
	}
	if err := opts.Audit.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := cmd.Context()
	p, err := openPage(ctx, args[0], auditSource)
	if err != nil {
		return err
	}
	defer p.Close()

	a := analyzer.New(p.Source, opts)
	verbosef("Auditing %s (%s)", p.URL, p.Kind)
	res, err := a.ScanContrast(ctx)
	if err != nil {
		return fmt.Errorf("failed to audit page: %w", err)
	}
	verbosef("Found %d issues", len(res.Issues))

	w, closeOut, err := output(cmd, auditOutput)
	if err != nil {
		return err
	}
	if auditFormat == "json" {
		issues := res.Issues
		if issues == nil {
			issues = []contrast.Issue{}
		}
		err = writeJSON(w, issues)
	} else {
		_, err = fmt.Fprint(w, formatIssues(res.Issues, auditPreview))
	}
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if auditHighlight >= 0 {
		if err := highlight(cmd, a, auditHighlight, opts.HighlightDuration); err != nil {
			return err
		}
	}

	if auditSave {
		return saveScan(func(s *store.Store) (store.Scan, error) {
			return s.SaveAudit(ctx, "", p.URL, res.Issues)
		})
	}
	return nil
}

// highlight outlines an issue's element and keeps the page open while the
// overlay is visible.
func highlight(cmd *cobra.Command, a *analyzer.Analyzer, index int, d time.Duration) error {
	err := a.Highlight(cmd.Context(), index)
	if errors.Is(err, dom.ErrHighlightUnsupported) {
		logger.Warn("highlighting needs a live source", "index", index)
		return nil
	}
	if err != nil {
		return err
	}

	// The overlay appears after the scroll settles.
	select {
	case <-time.After(d + 500*time.Millisecond):
	case <-cmd.Context().Done():
	}
	return nil
}
