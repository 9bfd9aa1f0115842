// Package cli provides the command-line interface for pagetint.
package cli

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/pagetint/internal/config"
	"github.com/jmylchreest/pagetint/internal/version"
)

var (
	// Global flags
	globalConfigPath string
	globalLogLevel   string
	globalVerbose    bool
	globalQuiet      bool

	// Loaded before every command runs.
	cfg    *config.Config
	logger hclog.Logger

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "pagetint",
		Short: "Extract colour palettes and audit contrast on web pages",
		Long: `pagetint reads a web page, either statically or in a real Chrome tab,
and reports the colours it is painted with and the text whose contrast falls
below WCAG AA.

Palettes can be exported as CSS custom properties, a Tailwind colour config,
Figma JSON, raw JSON, a PNG swatch sheet, or through an external exporter
plugin.`,
		Version:           version.Version,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&globalQuiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&globalConfigPath, "config", "", "config file (default: $XDG_CONFIG_HOME/pagetint/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&globalLogLevel, "log-level", "", "log level (trace, debug, info, warn, error)")

	rootCmd.SetVersionTemplate(version.String() + "\n")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(contrastCmd)
	rootCmd.AddCommand(scaleCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
}

// loadConfig reads the config file and environment, then applies the global
// flags on top.
func loadConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(globalConfigPath)
	if err != nil {
		return err
	}

	switch {
	case globalLogLevel != "":
		loaded.LogLevel = globalLogLevel
	case globalVerbose:
		loaded.LogLevel = "debug"
	case globalQuiet:
		loaded.LogLevel = "error"
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cfg = loaded
	logger = cfg.Logger()
	logger.Debug("configuration loaded", "command", cmd.Name(), "path", globalConfigPath)
	return nil
}

// verbosef prints progress to stderr when --verbose is set.
func verbosef(format string, args ...any) {
	if globalVerbose && !globalQuiet {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

var versionJSON bool

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print detailed version information including build date, commit hash, and Go version.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if versionJSON {
			return writeJSON(cmd.OutOrStdout(), version.GetInfo())
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "print as JSON")
}
