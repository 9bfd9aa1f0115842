package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jmylchreest/pagetint/internal/colour"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}

	checks := []struct {
		name string
		ok   bool
	}{
		{"collapse", cfg.Extract.Collapse == colour.CollapsePolicy{Threshold: 20, Limit: 15}},
		{"panel", cfg.Panel == colour.CollapsePolicy{Threshold: 30, Limit: 10}},
		{"max ranked", cfg.Extract.MaxRanked == 30},
		{"min area", cfg.Extract.MinArea == 5},
		{"contrast", cfg.Contrast.Threshold == 4.5 && cfg.Contrast.MaxIssues == 20},
		{"watch", cfg.Watch.SettleDelay == time.Second && cfg.Watch.QuietWindow == 2*time.Second},
		{"highlight", cfg.Watch.HighlightDuration == 3*time.Second},
		{"viewport", cfg.Viewport.Width == 1280 && cfg.Viewport.Height == 800},
		{"browser", !cfg.Browser.Headful && !cfg.Browser.Stealth && cfg.Browser.NavigationTimeout == 30*time.Second},
		{"store", strings.HasSuffix(cfg.Store.Path, filepath.Join("pagetint", "history.db"))},
		{"log level", cfg.LogLevel == "warn"},
	}
	for _, c := range checks {
		if !c.ok {
			t.Errorf("default %s is wrong: %+v", c.name, cfg)
		}
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := writeFile(t, `
log_level: debug
extract:
  min_area: 10
  collapse:
    threshold: 25
    limit: 12
panel:
  threshold: 40
  limit: 8
contrast:
  threshold: 7
watch:
  quiet_window: 500ms
viewport:
  width: 390
  height: 844
browser:
  remote: ws://127.0.0.1:9222/devtools/browser/abc
  stealth: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.Extract.MinArea != 10 {
		t.Errorf("scalars not loaded: %+v", cfg)
	}
	if cfg.Extract.Collapse != (colour.CollapsePolicy{Threshold: 25, Limit: 12}) || cfg.Panel.Limit != 8 {
		t.Errorf("policies = %+v %+v", cfg.Extract.Collapse, cfg.Panel)
	}
	if cfg.Watch.QuietWindow != 500*time.Millisecond || cfg.Watch.SettleDelay != time.Second {
		t.Errorf("watch = %+v", cfg.Watch)
	}
	if cfg.Viewport.Width != 390 || !cfg.Browser.Stealth || cfg.Browser.Remote == "" {
		t.Errorf("viewport/browser = %+v %+v", cfg.Viewport, cfg.Browser)
	}
	if cfg.Contrast.MaxIssues != 20 {
		t.Errorf("unset max issues lost its default: %d", cfg.Contrast.MaxIssues)
	}

	bc := cfg.BrowserConfig(nil)
	if bc.Viewport.Width != 390 || !bc.Stealth {
		t.Errorf("BrowserConfig() = %+v", bc)
	}
	if ao := cfg.AnalyzerOptions(nil); ao.Audit.Threshold != 7 || ao.Panel.Threshold != 40 {
		t.Errorf("AnalyzerOptions() = %+v", ao)
	}
}

func TestLoadMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() of a missing explicit file succeeded")
	}
	if _, err := Load(""); err != nil {
		t.Errorf("Load() without a default file error = %v", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	tests := []struct {
		name    string
		content string
	}{
		{"syntax", "extract: [unclosed"},
		{"log level", "log_level: chatty"},
		{"threshold", "contrast:\n  threshold: 30"},
		{"collapse", "extract:\n  collapse:\n    threshold: -1\n    limit: 15"},
		{"viewport", "viewport:\n  width: 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, tt.content)); err == nil {
				t.Error("Load() error = nil")
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PAGETINT_LOG_LEVEL":          "info",
		"PAGETINT_CONTRAST_THRESHOLD": "3",
		"PAGETINT_VIEWPORT_WIDTH":     "800",
		"PAGETINT_BROWSER_HEADFUL":    "true",
		"PAGETINT_QUIET_WINDOW":       "250ms",
		"PAGETINT_STORE_PATH":         "/tmp/scans.db",
		"UNRELATED":                   "x",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.LogLevel != "info" || cfg.Contrast.Threshold != 3 || cfg.Viewport.Width != 800 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if !cfg.Browser.Headful || cfg.Watch.QuietWindow != 250*time.Millisecond || cfg.Store.Path != "/tmp/scans.db" {
		t.Errorf("overrides not applied: %+v %+v", cfg.Browser, cfg.Watch)
	}

	bad := func(k string) (string, bool) {
		if k == "PAGETINT_MAX_ISSUES" {
			return "many", true
		}
		return "", false
	}
	if err := Default().ApplyEnv(bad); err == nil || !strings.Contains(err.Error(), "PAGETINT_MAX_ISSUES") {
		t.Errorf("ApplyEnv() error = %v, want one naming the variable", err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("PAGETINT_MAX_ISSUES", "5")

	cfg, err := Load(writeFile(t, "contrast:\n  max_issues: 50"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Contrast.MaxIssues != 5 {
		t.Errorf("MaxIssues = %d, want the environment value", cfg.Contrast.MaxIssues)
	}
}
