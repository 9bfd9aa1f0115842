package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/pagetint/internal/analyzer"
	"github.com/jmylchreest/pagetint/internal/store"
)

var (
	// Watch command flags
	watchSource      string
	watchJSON        bool
	watchInitialOnly bool
	watchSettle      time.Duration
	watchQuiet       time.Duration
	watchSave        bool
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <url>",
	Short: "Follow a page and re-extract its palette as it changes",
	Long: `Open a page and print its palette once it has settled, then again each
time the page stops changing for the quiet window. Changes are style, class
and child-list mutations reported by the browser.

Static sources are extracted once after the settle delay and never change.
Press Ctrl-C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchSource, "source", "s", sourceLive, "page source (live, static)")
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "print events as JSON lines")
	watchCmd.Flags().BoolVar(&watchInitialOnly, "initial-only", false, "only report the first extraction")
	watchCmd.Flags().DurationVar(&watchSettle, "settle", 0, "delay before the first extraction (default from config)")
	watchCmd.Flags().DurationVar(&watchQuiet, "quiet-window", 0, "how long the page must stay unchanged (default from config)")
	watchCmd.Flags().BoolVar(&watchSave, "save", false, "record every extraction in the history database")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := openPage(ctx, args[0], watchSource)
	if err != nil {
		return err
	}
	defer p.Close()

	var mutations <-chan struct{}
	if ms, ok := p.Source.(analyzer.MutationSource); ok {
		if mutations, err = ms.Mutations(ctx); err != nil {
			return fmt.Errorf("failed to watch page: %w", err)
		}
	}

	opts := cfg.WatchOptions()
	if watchSettle > 0 {
		opts.SettleDelay = watchSettle
	}
	if watchQuiet > 0 {
		opts.QuietWindow = watchQuiet
	}
	opts.EmitOnChange = !watchInitialOnly

	var history *store.Store
	if watchSave {
		if history, err = store.Open(cfg.Store.Path); err != nil {
			return err
		}
		defer history.Close()
	}

	a := analyzer.New(p.Source, cfg.AnalyzerOptions(logger))
	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)

	err = a.Watch(ctx, mutations, opts, func(e analyzer.Event) {
		if history != nil {
			if _, err := history.SavePalette(ctx, a.ID(), p.URL, e.Colors); err != nil {
				logger.Warn("failed to save palette", "error", err)
			}
		}
		if watchJSON {
			if err := enc.Encode(e); err != nil {
				logger.Warn("failed to write event", "error", err)
			}
			return
		}
		hexes := make([]string, len(e.Colors))
		for i, c := range e.Colors {
			hexes[i] = string(c.Color)
		}
		fmt.Fprintf(out, "%s  %d colours  %s\n", time.Now().Format(time.TimeOnly), len(e.Colors), strings.Join(hexes, " "))
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
