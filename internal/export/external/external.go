// Package external runs exporters built as separate binaries against
// pkg/exporter, using hashicorp/go-plugin over net/rpc.
package external

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	"github.com/jmylchreest/pagetint/internal/export"
	"github.com/jmylchreest/pagetint/internal/security"
	"github.com/jmylchreest/pagetint/pkg/exporter"
)

// Options configures an external exporter.
type Options struct {
	// Dir, when set, is the only directory exporters may be loaded from.
	Dir string

	// Args are passed through to the exporter with every palette.
	Args map[string]string

	Logger hclog.Logger
}

// Exporter is a running external exporter. It implements export.Exporter.
type Exporter struct {
	client *plugin.Client
	rpc    *exporter.RPCClient
	info   exporter.Info
	args   map[string]string
}

var _ export.Exporter = (*Exporter)(nil)

// Open starts the exporter binary at path and checks its protocol version.
// Close must be called to stop the process.
func Open(path string, opts Options) (*Exporter, error) {
	if opts.Dir != "" {
		if err := security.ValidatePluginPath(path, opts.Dir); err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  exporter.Handshake,
		Plugins:          map[string]plugin.Plugin{exporter.PluginName: &exporter.RPC{}},
		Cmd:              exec.Command(path),
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolNetRPC},
		Logger:           logger.Named("exporter"),
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to start exporter %s: %w", path, err)
	}

	e, err := dispense(rpcClient, opts.Args)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to load exporter %s: %w", path, err)
	}
	e.client = client
	return e, nil
}

// dispense fetches the exporter from an RPC connection and validates it.
func dispense(c plugin.ClientProtocol, args map[string]string) (*Exporter, error) {
	raw, err := c.Dispense(exporter.PluginName)
	if err != nil {
		return nil, fmt.Errorf("failed to dispense exporter: %w", err)
	}
	rpc, ok := raw.(*exporter.RPCClient)
	if !ok {
		return nil, fmt.Errorf("unexpected exporter client type %T", raw)
	}

	info, err := rpc.Metadata()
	if err != nil {
		return nil, fmt.Errorf("failed to read exporter metadata: %w", err)
	}
	if err := exporter.CheckCompatible(info.ProtocolVersion); err != nil {
		return nil, err
	}
	if info.Name == "" {
		return nil, fmt.Errorf("exporter reported no name")
	}

	return &Exporter{rpc: rpc, info: info, args: args}, nil
}

// Name implements export.Exporter.
func (e *Exporter) Name() string {
	return e.info.Name
}

// Description implements export.Exporter.
func (e *Exporter) Description() string {
	if e.info.Description == "" {
		return "external exporter " + e.info.Name
	}
	return e.info.Description
}

// Info returns the metadata reported by the exporter.
func (e *Exporter) Info() exporter.Info {
	return e.info
}

// Export implements export.Exporter.
func (e *Exporter) Export(p export.Palette) (map[string][]byte, error) {
	files, err := e.rpc.Export(context.Background(), export.PluginData(p, e.args))
	if err != nil {
		return nil, fmt.Errorf("exporter %s failed: %w", e.info.Name, err)
	}
	return files, nil
}

// Close stops the exporter process.
func (e *Exporter) Close() {
	if e.client != nil {
		e.client.Kill()
		e.client = nil
	}
}
