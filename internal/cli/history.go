package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/pagetint/internal/store"
)

var (
	// History command flags
	historyLimit int
	historyURL   string
	historyKind  string
	historyJSON  bool
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history [scan-id]",
	Short: "List recorded palettes and audits",
	Long: `List the scans recorded with --save, by watch --save and by the server,
newest first. Given a scan ID, print that scan's palette or issues.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum scans to list")
	historyCmd.Flags().StringVar(&historyURL, "url", "", "only scans of this URL")
	historyCmd.Flags().StringVar(&historyKind, "kind", "", "only scans of this kind (palette, audit)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	kind := store.Kind(historyKind)
	if kind != "" && kind != store.KindPalette && kind != store.KindAudit {
		return fmt.Errorf("unknown kind %q (valid: palette, audit)", historyKind)
	}

	s, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		scan, err := s.GetScan(ctx, args[0])
		if err != nil {
			return err
		}
		if historyJSON {
			return writeJSON(out, scan)
		}
		fmt.Fprintf(out, "%s %s of %s at %s\n\n", scan.ID, scan.Kind, scan.URL, scan.CreatedAt.Local().Format(time.DateTime))
		switch scan.Kind {
		case store.KindAudit:
			issues, err := scan.Issues()
			if err != nil {
				return err
			}
			fmt.Fprint(out, formatIssues(issues, false))
		default:
			colours, err := scan.Colours()
			if err != nil {
				return err
			}
			text, err := formatPalette(colours, "table", false)
			if err != nil {
				return err
			}
			fmt.Fprint(out, text)
		}
		return nil
	}

	scans, err := s.ListScans(ctx, store.ListOptions{Limit: historyLimit, URL: historyURL, Kind: kind})
	if err != nil {
		return err
	}
	if historyJSON {
		if scans == nil {
			scans = []store.Scan{}
		}
		return writeJSON(out, scans)
	}
	if len(scans) == 0 {
		fmt.Fprintln(out, "No scans recorded.")
		return nil
	}

	t := NewTable([]string{"ID", "Time", "Kind", "Items", "URL"})
	for _, scan := range scans {
		t.AddRow([]string{scan.ID, scan.CreatedAt.Local().Format(time.DateTime), string(scan.Kind), itemCount(scan), scan.URL})
	}
	fmt.Fprint(out, t.Render())
	return nil
}

// itemCount is the number of colours or issues in a scan.
func itemCount(scan store.Scan) string {
	var n int
	switch scan.Kind {
	case store.KindAudit:
		issues, err := scan.Issues()
		if err != nil {
			return "?"
		}
		n = len(issues)
	default:
		colours, err := scan.Colours()
		if err != nil {
			return "?"
		}
		n = len(colours)
	}
	return fmt.Sprintf("%d", n)
}
