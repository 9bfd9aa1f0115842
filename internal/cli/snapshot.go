package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Snapshot command flags
var snapshotOutput string

// snapshotCmd represents the snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot <url>",
	Short: "Capture a page in Chrome for offline analysis",
	Long: `Render a page in Chrome and save the computed styles, geometry and text
of every element as JSON. The capture can be passed to extract, audit,
analyze and export in place of the page.

Example:
  pagetint snapshot https://example.com -o example.json
  pagetint audit example.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := openPage(ctx, args[0], sourceLive)
		if err != nil {
			return err
		}
		defer p.Close()

		snap, err := p.tab.Snapshot(ctx)
		if err != nil {
			return err
		}

		if snapshotOutput == "" || snapshotOutput == "-" {
			return snap.Encode(cmd.OutOrStdout())
		}
		if err := snap.Save(snapshotOutput); err != nil {
			return err
		}
		verbosef("Captured %d elements", len(snap.Nodes))
		if !globalQuiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", snapshotOutput)
		}
		return nil
	},
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotOutput, "output", "o", "", "output file (default: stdout)")
}
