package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmylchreest/pagetint/internal/colour"
	"github.com/jmylchreest/pagetint/internal/contrast"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	colours := []colour.WeightedColour{{Color: "#3366FF", Weight: 100, Percentage: 100}}
	saved, err := s.SavePalette(ctx, "session-1", "https://example.com", colours)
	if err != nil {
		t.Fatalf("SavePalette() error = %v", err)
	}
	if saved.ID == "" || saved.CreatedAt.IsZero() {
		t.Errorf("SavePalette() = %+v, want generated ID and time", saved)
	}

	got, err := s.GetScan(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetScan() error = %v", err)
	}
	if got.URL != "https://example.com" || got.SessionID != "session-1" || got.Kind != KindPalette {
		t.Errorf("GetScan() = %+v", got)
	}
	if !got.CreatedAt.Equal(saved.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, saved.CreatedAt)
	}

	decoded, err := got.Colours()
	if err != nil || len(decoded) != 1 || decoded[0] != colours[0] {
		t.Errorf("Colours() = %+v, %v", decoded, err)
	}
	if _, err := got.Issues(); err == nil {
		t.Error("Issues() on a palette scan succeeded")
	}
}

func TestSaveAudit(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	issues := []contrast.Issue{{Foreground: "#CCCCCC", Background: "#FFFFFF", Ratio: 1.61, Text: "Faint", Selector: "p"}}
	saved, err := s.SaveAudit(ctx, "", "https://example.com", issues)
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.GetScan(ctx, saved.ID)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := got.Issues()
	if err != nil || len(decoded) != 1 || decoded[0].Foreground != "#CCCCCC" {
		t.Errorf("Issues() = %+v, %v", decoded, err)
	}

	empty, err := s.SaveAudit(ctx, "", "https://example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(empty.Payload) != "[]" {
		t.Errorf("empty audit payload = %s", empty.Payload)
	}
}

func TestListScans(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fixtures := []Scan{
		{URL: "https://a.example", Kind: KindPalette, CreatedAt: base, Payload: []byte("[]")},
		{URL: "https://b.example", Kind: KindAudit, CreatedAt: base.Add(time.Minute), Payload: []byte("[]")},
		{URL: "https://a.example", Kind: KindAudit, CreatedAt: base.Add(2 * time.Minute), Payload: []byte("[]")},
	}
	for _, f := range fixtures {
		if _, err := s.SaveScan(ctx, f); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name     string
		opts     ListOptions
		wantURLs []string
	}{
		{"all newest first", ListOptions{}, []string{"https://a.example", "https://b.example", "https://a.example"}},
		{"limit", ListOptions{Limit: 1}, []string{"https://a.example"}},
		{"by url", ListOptions{URL: "https://b.example"}, []string{"https://b.example"}},
		{"by kind", ListOptions{Kind: KindPalette}, []string{"https://a.example"}},
		{"by url and kind", ListOptions{URL: "https://a.example", Kind: KindAudit}, []string{"https://a.example"}},
		{"no match", ListOptions{URL: "https://c.example"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scans, err := s.ListScans(ctx, tt.opts)
			if err != nil {
				t.Fatalf("ListScans() error = %v", err)
			}
			if len(scans) != len(tt.wantURLs) {
				t.Fatalf("ListScans() returned %d scans, want %d", len(scans), len(tt.wantURLs))
			}
			for i, want := range tt.wantURLs {
				if scans[i].URL != want {
					t.Errorf("scan %d URL = %q, want %q", i, scans[i].URL, want)
				}
			}
		})
	}
}

func TestGetScanNotFound(t *testing.T) {
	s := openStore(t)
	if _, err := s.GetScan(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetScan() error = %v, want ErrNotFound", err)
	}
}

func TestSaveScanRejectsUnknownKind(t *testing.T) {
	s := openStore(t)
	if _, err := s.SaveScan(context.Background(), Scan{URL: "x", Kind: "screenshot", Payload: []byte("{}")}); err == nil {
		t.Error("SaveScan() accepted an unknown kind")
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.SavePalette(context.Background(), "", "https://example.com", nil); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()
	scans, err := s.ListScans(context.Background(), ListOptions{})
	if err != nil || len(scans) != 1 {
		t.Errorf("ListScans() after reopen = %d, %v", len(scans), err)
	}
}
