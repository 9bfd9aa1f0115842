// Package export renders a classified palette into design-tool formats.
// Exporters are looked up by name in a Registry; external exporters are
// served over go-plugin by the external subpackage.
package export

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/pagetint/internal/colour"
)

var (
	// ErrUnknownFormat is returned when no exporter is registered for a name.
	ErrUnknownFormat = errors.New("unknown export format")

	// ErrEmptyPalette is returned when there is nothing to export.
	ErrEmptyPalette = errors.New("no colour data to export")
)

// Palette is the input to every exporter.
type Palette struct {
	URL        string
	Colors     []colour.WeightedColour
	Classified colour.ClassifiedPalette
}

// NewPalette classifies colours, which must already be collapsed and in
// descending weight order.
func NewPalette(url string, colours []colour.WeightedColour) Palette {
	return Palette{URL: url, Colors: colours, Classified: colour.Classify(colours)}
}

// Exporter renders a palette into one or more files.
type Exporter interface {
	// Name returns the format name used on the command line.
	Name() string

	// Description returns a one-line human-readable description.
	Description() string

	// Export returns file name to content.
	Export(p Palette) (map[string][]byte, error)
}

// Registry holds exporters by name.
type Registry struct {
	exporters map[string]Exporter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{exporters: make(map[string]Exporter)}
}

// Options configures the built-in exporters.
type Options struct {
	// TemplateDir holds per-exporter template overrides in
	// TemplateDir/<exporter>/<file>.tmpl.
	TemplateDir string

	Logger hclog.Logger
}

// Builtin returns a registry with every built-in exporter.
func Builtin(opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	r := NewRegistry()
	r.Register(&CSS{loader: NewLoader("css", opts.TemplateDir).WithLogger(logger)})
	r.Register(Tailwind{})
	r.Register(Figma{})
	r.Register(JSON{})
	r.Register(PNG{})
	return r
}

// Register adds an exporter, replacing any with the same name.
func (r *Registry) Register(e Exporter) {
	r.exporters[e.Name()] = e
}

// Get returns the exporter registered under name.
func (r *Registry) Get(name string) (Exporter, error) {
	e, ok := r.exporters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownFormat, name, r.Names())
	}
	return e, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.exporters))
	for name := range r.exporters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Export renders p with the named exporter.
func (r *Registry) Export(name string, p Palette) (map[string][]byte, error) {
	e, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if len(p.Colors) == 0 {
		return nil, ErrEmptyPalette
	}
	files, err := e.Export(p)
	if err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", name, err)
	}
	return files, nil
}
