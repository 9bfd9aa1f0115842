package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/pagetint/internal/analyzer"
	"github.com/jmylchreest/pagetint/internal/export"
	"github.com/jmylchreest/pagetint/internal/export/external"
	"github.com/jmylchreest/pagetint/internal/security"
	"github.com/jmylchreest/pagetint/internal/store"
)

var (
	// Export command flags
	exportSource string
	exportFormat string
	exportPlugin string
	exportArgs   map[string]string
	exportOutput string
	exportStdout bool
	exportScan   string
	exportList   bool
	exportDump   bool
	exportForce  bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [url|file]",
	Short: "Export a page palette for design tools",
	Long: `Extract and classify a page palette, then write it in a format other
tools understand.

Built-in formats: css, tailwind, figma, json, png. External exporters are
plugin binaries speaking the pagetint exporter protocol; a bare name is looked
up in the configured exporter directory.

Examples:
  # CSS custom properties in the current directory
  pagetint export https://example.com

  # Tailwind config to stdout
  pagetint export --format tailwind --stdout https://example.com

  # Export a palette recorded earlier with --save
  pagetint export --scan 2f1c... --format figma -o design/

  # Use an external exporter with arguments
  pagetint export --plugin scss --arg prefix=brand https://example.com

  # Copy the CSS template to the override directory for editing
  pagetint export --dump-template`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	addSourceFlag(exportCmd.Flags(), &exportSource)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "css", "export format")
	exportCmd.Flags().StringVarP(&exportPlugin, "plugin", "p", "", "external exporter binary or name")
	exportCmd.Flags().StringToStringVar(&exportArgs, "arg", nil, "argument passed to the external exporter (key=value)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", ".", "output directory")
	exportCmd.Flags().BoolVar(&exportStdout, "stdout", false, "write a single-file export to stdout")
	exportCmd.Flags().StringVar(&exportScan, "scan", "", "export a palette from the history database instead of a page")
	exportCmd.Flags().BoolVar(&exportList, "list", false, "list available formats")
	exportCmd.Flags().BoolVar(&exportDump, "dump-template", false, "write the default CSS template to the template directory")
	exportCmd.Flags().BoolVar(&exportForce, "force", false, "overwrite an existing template with --dump-template")
}

func runExport(cmd *cobra.Command, args []string) error {
	registry := export.Builtin(export.Options{TemplateDir: cfg.Export.TemplateDir, Logger: logger})

	if exportList {
		return listFormats(cmd, registry)
	}
	if exportDump {
		path, err := export.NewLoader("css", cfg.Export.TemplateDir).WithLogger(logger).Dump("css.tmpl", exportForce)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Template written to %s\n", path)
		return nil
	}

	format := exportFormat
	if exportPlugin != "" {
		ext, err := openExporter(exportPlugin)
		if err != nil {
			return err
		}
		defer ext.Close()
		registry.Register(ext)
		format = ext.Name()
		verbosef("Loaded exporter %s %s", ext.Info().Name, ext.Info().Version)
	}
	if _, err := registry.Get(format); err != nil {
		return err
	}

	palette, err := loadPalette(cmd.Context(), args)
	if err != nil {
		return err
	}

	files, err := registry.Export(format, palette)
	if err != nil {
		if errors.Is(err, export.ErrEmptyPalette) {
			return fmt.Errorf("no colours found on %s", palette.URL)
		}
		return err
	}
	return writeFiles(cmd, files)
}

// loadPalette extracts a palette from a page or reads one from history.
func loadPalette(ctx context.Context, args []string) (export.Palette, error) {
	if exportScan != "" {
		if len(args) > 0 {
			return export.Palette{}, fmt.Errorf("--scan cannot be combined with a page argument")
		}
		s, err := store.Open(cfg.Store.Path)
		if err != nil {
			return export.Palette{}, err
		}
		defer s.Close()
		scan, err := s.GetScan(ctx, exportScan)
		if err != nil {
			return export.Palette{}, err
		}
		colours, err := scan.Colours()
		if err != nil {
			return export.Palette{}, err
		}
		return export.NewPalette(scan.URL, colours), nil
	}

	if len(args) != 1 {
		return export.Palette{}, fmt.Errorf("a page URL or file is required")
	}
	p, err := openPage(ctx, args[0], exportSource)
	if err != nil {
		return export.Palette{}, err
	}
	defer p.Close()

	a := analyzer.New(p.Source, cfg.AnalyzerOptions(logger))
	colours, err := a.Extract(ctx)
	if err != nil {
		return export.Palette{}, fmt.Errorf("failed to extract colours: %w", err)
	}
	classified, err := a.Classify(ctx)
	if err != nil {
		return export.Palette{}, err
	}
	return export.Palette{URL: p.URL, Colors: colours, Classified: classified}, nil
}

// openExporter starts an external exporter. Bare names resolve inside the
// exporter directory and may not leave it.
func openExporter(name string) (*external.Exporter, error) {
	opts := external.Options{Args: exportArgs, Logger: logger}
	path := name
	if !strings.ContainsRune(name, filepath.Separator) {
		path = filepath.Join(cfg.Export.PluginDir, name)
		opts.Dir = cfg.Export.PluginDir
	}
	return external.Open(path, opts)
}

func listFormats(cmd *cobra.Command, registry *export.Registry) error {
	t := NewTable([]string{"Format", "Description"})
	for _, name := range registry.Names() {
		e, err := registry.Get(name)
		if err != nil {
			return err
		}
		t.AddRow([]string{name, e.Description()})
	}
	fmt.Fprint(cmd.OutOrStdout(), t.Render())

	entries, err := os.ReadDir(cfg.Export.PluginDir)
	if err != nil || len(entries) == 0 {
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nExporters in %s:\n", cfg.Export.PluginDir)
	for _, entry := range entries {
		if !entry.IsDir() {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", entry.Name())
		}
	}
	return nil
}

// writeFiles stores exported files under the output directory, or prints a
// single file with --stdout.
func writeFiles(cmd *cobra.Command, files map[string][]byte) error {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	if exportStdout {
		if len(files) != 1 {
			return fmt.Errorf("--stdout needs a single-file export, got %d files", len(files))
		}
		_, err := cmd.OutOrStdout().Write(files[names[0]])
		return err
	}

	for _, name := range names {
		if err := security.ValidateOutputName(name, exportOutput); err != nil {
			return err
		}
	}
	for _, name := range names {
		path := filepath.Join(exportOutput, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(path, files[name], 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		if !globalQuiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
		}
	}
	return nil
}
