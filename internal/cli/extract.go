package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/pagetint/internal/analyzer"
	"github.com/jmylchreest/pagetint/internal/colour"
	"github.com/jmylchreest/pagetint/internal/store"
)

var (
	// Extract command flags
	extractSource    string
	extractFormat    string
	extractOutput    string
	extractPreview   bool
	extractThreshold float64
	extractLimit     int
	extractFilter    string
	extractRole      string
	extractSave      bool
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <url|file>",
	Short: "Extract the colour palette of a page",
	Long: `Extract the colours a page is painted with, weighted by how much of the
page each colour covers.

Backgrounds count by area, text colours by text length, and borders, shadows,
SVG fills and pseudo-elements contribute smaller weights. Near-identical
colours are merged.

Examples:
  # Palette of a page fetched without a browser
  pagetint extract https://example.com

  # Render the page in Chrome first
  pagetint extract --source live https://example.com

  # Group by role with terminal swatches
  pagetint extract --format classified --preview https://example.com

  # Only accent colours containing "ff"
  pagetint extract --format classified --role accent --filter ff page.html

  # Analyse a captured snapshot and record the result
  pagetint extract --save capture.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	addSourceFlag(extractCmd.Flags(), &extractSource)
	extractCmd.Flags().StringVarP(&extractFormat, "format", "f", "hex", "output format (hex, table, json, classified)")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "output file (default: stdout)")
	extractCmd.Flags().BoolVar(&extractPreview, "preview", false, "show colour previews in terminal")
	extractCmd.Flags().Float64Var(&extractThreshold, "threshold", 0, "merge colours closer than this RGB distance (default from config)")
	extractCmd.Flags().IntVar(&extractLimit, "limit", 0, "maximum colours after merging (default from config)")
	extractCmd.Flags().StringVar(&extractFilter, "filter", "", "only colours whose hex contains this text")
	extractCmd.Flags().StringVar(&extractRole, "role", "all", "only colours of this role (all, primary, secondary, accent)")
	extractCmd.Flags().BoolVar(&extractSave, "save", false, "record the palette in the history database")
}

// runExtract executes the extract command.
func runExtract(cmd *cobra.Command, args []string) error {
	role, err := colour.ParseRole(extractRole)
	if err != nil {
		return err
	}

	opts := cfg.AnalyzerOptions(logger)
	if extractThreshold > 0 {
		opts.Extract.Policy.Threshold = extractThreshold
	}
	if extractLimit > 0 {
		opts.Extract.Policy.Limit = extractLimit
	}
	if err := opts.Extract.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := cmd.Context()
	p, err := openPage(ctx, args[0], extractSource)
	if err != nil {
		return err
	}
	defer p.Close()

	a := analyzer.New(p.Source, opts)
	verbosef("Extracting colours from %s (%s)", p.URL, p.Kind)
	colours, err := a.Extract(ctx)
	if err != nil {
		return fmt.Errorf("failed to extract colours: %w", err)
	}
	verbosef("Found %d colours", len(colours))

	var classified colour.ClassifiedPalette
	if extractFormat == "classified" || role != "" {
		if classified, err = a.Classify(ctx); err != nil {
			return err
		}
	}

	colours = colour.Filter(colour.ByRole(colours, classified, role), extractFilter)

	var text string
	switch extractFormat {
	case "classified":
		text, err = formatClassified(filterClassified(classified, role, extractFilter), "", extractPreview)
	case "table":
		text = formatColourTable(colours, classified, extractPreview)
	default:
		text, err = formatPalette(colours, extractFormat, extractPreview)
	}
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	w, closeOut, err := output(cmd, extractOutput)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, text); err != nil {
		closeOut()
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := closeOut(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if extractSave {
		return saveScan(func(s *store.Store) (store.Scan, error) {
			return s.SavePalette(ctx, "", p.URL, a.Colours())
		})
	}
	return nil
}

// filterClassified narrows each role group by role and hex filter.
func filterClassified(p colour.ClassifiedPalette, role colour.Role, query string) colour.ClassifiedPalette {
	keep := func(r colour.Role, group []colour.WeightedColour) []colour.WeightedColour {
		if role != "" && role != r {
			return []colour.WeightedColour{}
		}
		return colour.Filter(group, query)
	}
	return colour.ClassifiedPalette{
		Primary:   keep(colour.RolePrimary, p.Primary),
		Secondary: keep(colour.RoleSecondary, p.Secondary),
		Accent:    keep(colour.RoleAccent, p.Accent),
	}
}

// saveScan records a result in the history database.
func saveScan(save func(*store.Store) (store.Scan, error)) error {
	s, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	scan, err := save(s)
	if err != nil {
		return err
	}
	logger.Debug("scan saved", "id", scan.ID, "kind", scan.Kind)
	verbosef("Saved scan %s", scan.ID)
	return nil
}
