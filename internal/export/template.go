package export

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/pagetint/internal/colour"
)

//go:embed templates/*.tmpl
var templates embed.FS

// Loader reads an exporter's template, preferring a user override in
// <base>/<exporter>/ over the embedded default.
type Loader struct {
	exporter string
	base     string
	logger   hclog.Logger
}

// NewLoader creates a loader for exporter. An empty base disables
// overrides.
func NewLoader(exporter, base string) *Loader {
	return &Loader{exporter: exporter, base: base, logger: hclog.NewNullLogger()}
}

// WithLogger sets the logger used to report which template was chosen.
func (l *Loader) WithLogger(logger hclog.Logger) *Loader {
	l.logger = logger.Named("template")
	return l
}

// CustomPath returns where an override for filename would live.
func (l *Loader) CustomPath(filename string) string {
	if l.base == "" {
		return ""
	}
	return filepath.Join(l.base, l.exporter, filename)
}

// Load returns the template text and whether it came from an override.
func (l *Loader) Load(filename string) ([]byte, bool, error) {
	if path := l.CustomPath(filename); path != "" {
		if content, err := os.ReadFile(path); err == nil {
			l.logger.Debug("using custom template", "path", path)
			return content, true, nil
		}
	}

	content, err := templates.ReadFile("templates/" + filename)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load template %q: %w", filename, err)
	}
	return content, false, nil
}

// Dump writes the embedded template to the override location so it can be
// edited. Existing overrides are kept unless force is set.
func (l *Loader) Dump(filename string, force bool) (string, error) {
	path := l.CustomPath(filename)
	if path == "" {
		return "", fmt.Errorf("no template directory configured")
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("custom template already exists: %s (use --force to overwrite)", path)
		}
	}

	content, err := templates.ReadFile("templates/" + filename)
	if err != nil {
		return "", fmt.Errorf("failed to read embedded template %q: %w", filename, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create template directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write template: %w", err)
	}
	return path, nil
}

// Render executes filename with data.
func (l *Loader) Render(filename string, data any) ([]byte, error) {
	content, _, err := l.Load(filename)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New(filename).Funcs(templateFuncs()).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %q: %w", filename, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template %q: %w", filename, err)
	}
	return buf.Bytes(), nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"inc":       func(i int) int { return i + 1 },
		"hexNoHash": func(h colour.Hex) string { return strings.TrimPrefix(string(h), "#") },
		"rgb":       func(h colour.Hex) string { return h.RGB().String() },
		"toLower":   func(h colour.Hex) string { return strings.ToLower(string(h)) },
		"label":     func(h colour.Hex) colour.Hex { return colour.LabelColour(h.RGB()).Hex() },
	}
}
