// Package exporter is the public API for external pagetint exporters.
// An exporter is a separate binary that receives a classified palette over
// hashicorp/go-plugin net/rpc and returns the files it renders.
package exporter

import (
	"context"

	"github.com/hashicorp/go-plugin"
)

const (
	// ProtocolVersion is the exporter API version, MAJOR.MINOR.PATCH.
	ProtocolVersion = "0.1.0"

	// MinCompatibleVersion is the oldest exporter API the host accepts.
	MinCompatibleVersion = "0.1.0"

	// PluginName is the name the exporter is dispensed under.
	PluginName = "exporter"
)

// Handshake guards against running arbitrary binaries as exporters.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "PAGETINT_EXPORTER",
	MagicCookieValue: "pagetint_palette",
}

// Exporter is implemented by external exporters.
type Exporter interface {
	// Export renders the palette. The result maps file names to contents.
	Export(ctx context.Context, palette PaletteData) (map[string][]byte, error)

	// Metadata describes the exporter.
	Metadata() Info
}

// Info describes an exporter.
type Info struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	ProtocolVersion string `json:"protocol_version"`
	Description     string `json:"description"`
}

// RGB is a colour's channel values.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Colour is one palette entry.
type Colour struct {
	Hex        string  `json:"hex"`
	RGB        RGB     `json:"rgb"`
	Weight     float64 `json:"weight"`
	Percentage float64 `json:"percentage"`

	// Role is "primary", "secondary", "accent" or empty when unclassified.
	Role string `json:"role,omitempty"`
}

// PaletteData is the palette sent to an exporter. Colors is the ranked
// list; the role slices hold the classified subset in rank order.
type PaletteData struct {
	URL       string            `json:"url,omitempty"`
	Colors    []Colour          `json:"colors"`
	Primary   []Colour          `json:"primary"`
	Secondary []Colour          `json:"secondary"`
	Accent    []Colour          `json:"accent"`
	Args      map[string]string `json:"args,omitempty"`
}

// Serve runs impl as an exporter plugin. It is called from the exporter's
// main function and does not return.
func Serve(impl Exporter) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]plugin.Plugin{
			PluginName: &RPC{Impl: impl},
		},
	})
}
