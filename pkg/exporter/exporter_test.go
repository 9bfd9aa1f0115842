package exporter

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"testing"
)

type mockExporter struct {
	files map[string][]byte
	err   error
	got   PaletteData
}

func (m *mockExporter) Export(_ context.Context, p PaletteData) (map[string][]byte, error) {
	m.got = p
	if m.err != nil {
		return nil, m.err
	}
	return m.files, nil
}

func (m *mockExporter) Metadata() Info {
	return Info{Name: "scss", Version: "1.0.0", ProtocolVersion: ProtocolVersion, Description: "SCSS variables"}
}

// dial serves impl over an in-memory connection and returns a client for it.
func dial(t *testing.T, impl Exporter) *RPCClient {
	t.Helper()

	p := &RPC{Impl: impl}
	srv, err := p.Server(nil)
	if err != nil {
		t.Fatalf("Server() error = %v", err)
	}
	server := rpc.NewServer()
	if err := server.RegisterName("Plugin", srv); err != nil {
		t.Fatalf("RegisterName() error = %v", err)
	}

	serverConn, clientConn := net.Pipe()
	go server.ServeConn(serverConn)

	c := rpc.NewClient(clientConn)
	t.Cleanup(func() { c.Close() })

	raw, err := p.Client(nil, c)
	if err != nil {
		t.Fatalf("Client() error = %v", err)
	}
	return raw.(*RPCClient)
}

func TestRPCRoundTrip(t *testing.T) {
	mock := &mockExporter{files: map[string][]byte{"_palette.scss": []byte("$primary-1: #3366FF;\n")}}
	client := dial(t, mock)

	info, err := client.Metadata()
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if info.Name != "scss" || info.ProtocolVersion != ProtocolVersion {
		t.Errorf("Metadata() = %+v", info)
	}

	palette := PaletteData{
		URL:     "https://example.com",
		Colors:  []Colour{{Hex: "#3366FF", RGB: RGB{R: 0x33, G: 0x66, B: 0xFF}, Weight: 10, Percentage: 100, Role: "primary"}},
		Primary: []Colour{{Hex: "#3366FF", RGB: RGB{R: 0x33, G: 0x66, B: 0xFF}, Weight: 10, Percentage: 100, Role: "primary"}},
		Args:    map[string]string{"prefix": "brand"},
	}
	files, err := client.Export(context.Background(), palette)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if string(files["_palette.scss"]) != "$primary-1: #3366FF;\n" {
		t.Errorf("Export() files = %q", files)
	}
	if len(mock.got.Primary) != 1 || mock.got.Args["prefix"] != "brand" {
		t.Errorf("exporter received %+v", mock.got)
	}
}

func TestRPCExportError(t *testing.T) {
	client := dial(t, &mockExporter{err: errors.New("disk full")})

	_, err := client.Export(context.Background(), PaletteData{})
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Message != "disk full" {
		t.Errorf("Export() error = %v, want RPCError(disk full)", err)
	}
}

func TestCheckCompatible(t *testing.T) {
	tests := []struct {
		version string
		wantErr bool
	}{
		{ProtocolVersion, false},
		{"0.1.7", false},
		{"0.2.0", false},
		{"0.0.9", true},
		{"1.0.0", true},
		{"0.1", true},
		{"a.b.c", true},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			err := CheckCompatible(tt.version)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckCompatible(%q) error = %v, wantErr %v", tt.version, err, tt.wantErr)
			}
		})
	}
}
