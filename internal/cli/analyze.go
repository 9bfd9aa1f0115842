package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/pagetint/internal/analyzer"
	"github.com/jmylchreest/pagetint/internal/colour"
	"github.com/jmylchreest/pagetint/internal/contrast"
)

var (
	// Analyze command flags
	analyzeSource  string
	analyzeFormat  string
	analyzePreview bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <url|file>",
	Short: "Extract the palette and audit contrast in one pass",
	Long: `Load the page once, then extract its palette and audit its contrast
concurrently over the same document.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	addSourceFlag(analyzeCmd.Flags(), &analyzeSource)
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "text", "output format (text, json)")
	analyzeCmd.Flags().BoolVar(&analyzePreview, "preview", false, "show colour previews in terminal")
}

// report is the JSON form of an analysis.
type report struct {
	URL        string                   `json:"url"`
	Colors     []colour.WeightedColour  `json:"colors"`
	Classified colour.ClassifiedPalette `json:"classified"`
	Issues     []contrast.Issue         `json:"issues"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p, err := openPage(ctx, args[0], analyzeSource)
	if err != nil {
		return err
	}
	defer p.Close()

	doc, err := p.Source.Document(ctx)
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}

	a := analyzer.New(analyzer.Fixed(doc), cfg.AnalyzerOptions(logger))
	var r report
	r.URL = p.URL

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.Colors = a.ExtractDocument(doc)
		var err error
		r.Classified, err = a.Classify(gctx)
		return err
	})
	g.Go(func() error {
		r.Issues = a.AuditDocument(doc).Issues
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if r.Colors == nil {
		r.Colors = []colour.WeightedColour{}
	}
	if r.Issues == nil {
		r.Issues = []contrast.Issue{}
	}

	out := cmd.OutOrStdout()
	switch analyzeFormat {
	case "json":
		return writeJSON(out, r)
	case "text":
		fmt.Fprintf(out, "Palette of %s\n\n", r.URL)
		fmt.Fprint(out, formatColourTable(r.Colors, r.Classified, analyzePreview))
		fmt.Fprintf(out, "\nContrast issues (%d)\n\n", len(r.Issues))
		fmt.Fprint(out, formatIssues(r.Issues, analyzePreview))
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json)", analyzeFormat)
	}
}
