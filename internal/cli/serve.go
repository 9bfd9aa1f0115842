package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/pagetint/internal/browser"
	"github.com/jmylchreest/pagetint/internal/server"
	"github.com/jmylchreest/pagetint/internal/store"
)

var (
	// Serve command flags
	serveAddr         string
	serveLive         bool
	serveNoHistory    bool
	serveAllowPrivate bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve analysis sessions over HTTP",
	Long: `Start an HTTP server that opens pages as sessions and answers the
extractColors, scanContrast and highlightElement messages.

Endpoints:
  POST   /v1/sessions               {"url": "...", "source": "static|live"} -> {"id": "..."}
  POST   /v1/sessions/{id}/messages {"action": "extractColors"}
  GET    /v1/sessions/{id}/events   server-sent colorsExtracted events
  DELETE /v1/sessions/{id}
  GET    /healthz`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveLive, "live", false, "start Chrome and accept live sessions")
	serveCmd.Flags().BoolVar(&serveNoHistory, "no-history", false, "do not record results in the history database")
	serveCmd.Flags().BoolVar(&serveAllowPrivate, "allow-private", false, "allow sessions on loopback and private addresses")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources := server.Sources{
		Fetch:  cfg.FetchOptions(),
		Static: cfg.StaticOptions(logger.Named("static")),
	}
	if serveLive {
		mgr := browser.NewManager(cfg.BrowserConfig(logger))
		if err := mgr.Start(ctx); err != nil {
			return err
		}
		defer mgr.Close()
		sources.Browser = mgr
	}

	opts := server.Options{
		Open:         sources.Open,
		Analyzer:     cfg.AnalyzerOptions(logger),
		Watch:        cfg.WatchOptions(),
		AllowPrivate: cfg.Server.AllowPrivate || serveAllowPrivate,
		MaxSessions:  cfg.Server.MaxSessions,
		Logger:       logger,
	}
	if !serveNoHistory {
		s, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer s.Close()
		opts.Store = s
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	return server.New(opts).ListenAndServe(ctx, addr)
}
