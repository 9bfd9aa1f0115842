package exporter

import (
	"context"
	"net/rpc"

	"github.com/hashicorp/go-plugin"
)

// RPC implements plugin.Plugin for exporters.
type RPC struct {
	plugin.Plugin
	Impl Exporter
}

// Server returns the RPC server for the exporter binary.
func (p *RPC) Server(*plugin.MuxBroker) (any, error) {
	return &RPCServer{Impl: p.Impl}, nil
}

// Client returns the host side RPC client.
func (p *RPC) Client(_ *plugin.MuxBroker, c *rpc.Client) (any, error) {
	return &RPCClient{client: c}, nil
}

// RPCServer serves an Exporter over net/rpc.
type RPCServer struct {
	Impl Exporter
}

// Export implements the RPC method for rendering.
func (s *RPCServer) Export(palette PaletteData, resp *map[string][]byte) error {
	files, err := s.Impl.Export(context.Background(), palette)
	if err != nil {
		return err
	}
	*resp = files
	return nil
}

// Metadata implements the RPC method for exporter metadata.
func (s *RPCServer) Metadata(_ any, resp *Info) error {
	*resp = s.Impl.Metadata()
	return nil
}

// RPCClient calls a remote Exporter.
type RPCClient struct {
	client *rpc.Client
}

// NewRPCClient wraps an established net/rpc connection.
func NewRPCClient(c *rpc.Client) *RPCClient {
	return &RPCClient{client: c}
}

// Export calls the remote Export method.
func (c *RPCClient) Export(_ context.Context, palette PaletteData) (map[string][]byte, error) {
	var files map[string][]byte
	if err := c.client.Call("Plugin.Export", palette, &files); err != nil {
		return nil, &RPCError{Message: err.Error()}
	}
	return files, nil
}

// Metadata calls the remote Metadata method.
func (c *RPCClient) Metadata() (Info, error) {
	var info Info
	err := c.client.Call("Plugin.Metadata", new(any), &info)
	return info, err
}

// RPCError is an error returned by the remote side.
type RPCError struct {
	Message string
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return e.Message
}
