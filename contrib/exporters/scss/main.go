// scss - pagetint exporter for Sass variables
//
// Example external exporter speaking the pagetint exporter protocol over
// go-plugin net/rpc. It writes one $<prefix>-<role>-N variable per
// classified colour plus a map of every ranked colour.
//
// Build:
//
//	go build -o scss .
//
// Usage:
//
//	install -m755 scss ~/.local/share/pagetint/exporters/
//	pagetint export --plugin scss --arg prefix=brand https://example.com
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmylchreest/pagetint/pkg/exporter"
)

const defaultPrefix = "color"

// SCSS renders Sass variables.
type SCSS struct{}

func (SCSS) Metadata() exporter.Info {
	return exporter.Info{
		Name:            "scss",
		Version:         "0.1.0",
		ProtocolVersion: exporter.ProtocolVersion,
		Description:     "Sass variables ($prefix-role-N) and a $prefix-palette map",
	}
}

func (SCSS) Export(_ context.Context, p exporter.PaletteData) (map[string][]byte, error) {
	prefix := p.Args["prefix"]
	if prefix == "" {
		prefix = defaultPrefix
	}
	if strings.ContainsAny(prefix, " ${}:;") {
		return nil, fmt.Errorf("invalid prefix %q", prefix)
	}

	var b strings.Builder
	if p.URL != "" {
		fmt.Fprintf(&b, "// Palette of %s\n\n", p.URL)
	}
	for _, group := range []struct {
		role    string
		colours []exporter.Colour
	}{
		{"primary", p.Primary},
		{"secondary", p.Secondary},
		{"accent", p.Accent},
	} {
		for i, c := range group.colours {
			fmt.Fprintf(&b, "$%s-%s-%d: %s;\n", prefix, group.role, i+1, strings.ToLower(c.Hex))
		}
	}

	fmt.Fprintf(&b, "\n$%s-palette: (\n", prefix)
	for i, c := range p.Colors {
		fmt.Fprintf(&b, "  %d: %s, // %.1f%%\n", i+1, strings.ToLower(c.Hex), c.Percentage)
	}
	b.WriteString(");\n")

	return map[string][]byte{"_palette.scss": []byte(b.String())}, nil
}

func main() {
	exporter.Serve(SCSS{})
}
