// Package config loads pagetint settings. Defaults are overlaid by a YAML
// file, then by PAGETINT_* environment variables (a .env file in the
// working directory is read first); command-line flags override last.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/pagetint/internal/analyzer"
	"github.com/jmylchreest/pagetint/internal/browser"
	"github.com/jmylchreest/pagetint/internal/colour"
	"github.com/jmylchreest/pagetint/internal/contrast"
	"github.com/jmylchreest/pagetint/internal/dom/snapshot"
	"github.com/jmylchreest/pagetint/internal/dom/static"
	"github.com/jmylchreest/pagetint/internal/extract"
	httputil "github.com/jmylchreest/pagetint/internal/util/http"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PAGETINT_"

// Config is the complete configuration.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Extract  ExtractConfig         `yaml:"extract"`
	Panel    colour.CollapsePolicy `yaml:"panel"`
	Contrast ContrastConfig        `yaml:"contrast"`
	Watch    WatchConfig           `yaml:"watch"`
	Viewport snapshot.Viewport     `yaml:"viewport"`
	Browser  BrowserConfig         `yaml:"browser"`
	Fetch    FetchConfig           `yaml:"fetch"`
	Store    StoreConfig           `yaml:"store"`
	Server   ServerConfig          `yaml:"server"`
	Export   ExportConfig          `yaml:"export"`
}

// ExtractConfig controls palette extraction.
type ExtractConfig struct {
	MinArea   float64               `yaml:"min_area"`
	MaxRanked int                   `yaml:"max_ranked"`
	Collapse  colour.CollapsePolicy `yaml:"collapse"`
}

// ContrastConfig controls the contrast audit.
type ContrastConfig struct {
	Threshold float64 `yaml:"threshold"`
	MaxIssues int     `yaml:"max_issues"`
}

// WatchConfig controls live re-extraction.
type WatchConfig struct {
	SettleDelay       time.Duration `yaml:"settle_delay"`
	QuietWindow       time.Duration `yaml:"quiet_window"`
	HighlightDuration time.Duration `yaml:"highlight_duration"`
}

// BrowserConfig controls Chrome.
type BrowserConfig struct {
	Remote            string        `yaml:"remote"`
	Bin               string        `yaml:"bin"`
	Headful           bool          `yaml:"headful"`
	Stealth           bool          `yaml:"stealth"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
}

// FetchConfig controls static page downloads.
type FetchConfig struct {
	Timeout  time.Duration `yaml:"timeout"`
	MaxBytes int64         `yaml:"max_bytes"`
}

// StoreConfig locates the scan history database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig controls the HTTP transport.
type ServerConfig struct {
	Addr string `yaml:"addr"`

	// AllowPrivate lets sessions open loopback and private network URLs.
	AllowPrivate bool `yaml:"allow_private"`

	// MaxSessions caps concurrently open sessions.
	MaxSessions int `yaml:"max_sessions"`
}

// ExportConfig locates template overrides and external exporters.
type ExportConfig struct {
	TemplateDir string `yaml:"template_dir"`
	PluginDir   string `yaml:"plugin_dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "warn",
		Extract: ExtractConfig{
			MinArea:   extract.DefaultMinArea,
			MaxRanked: colour.MaxRanked,
			Collapse:  colour.ExtractionPolicy,
		},
		Panel: colour.PanelPolicy,
		Contrast: ContrastConfig{
			Threshold: colour.MinContrastAA,
			MaxIssues: contrast.DefaultMaxIssues,
		},
		Watch: WatchConfig{
			SettleDelay:       analyzer.DefaultSettleDelay,
			QuietWindow:       analyzer.DefaultQuietWindow,
			HighlightDuration: analyzer.DefaultHighlightDuration,
		},
		Viewport: snapshot.Viewport{Width: static.DefaultViewportWidth, Height: static.DefaultViewportHeight},
		Browser: BrowserConfig{
			NavigationTimeout: browser.DefaultNavigationTimeout,
		},
		Fetch: FetchConfig{
			Timeout:  httputil.DefaultTimeout,
			MaxBytes: httputil.DefaultMaxBytes,
		},
		Store: StoreConfig{
			Path: filepath.Join(dataHome(), "pagetint", "history.db"),
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:8765",
			MaxSessions: 16,
		},
		Export: ExportConfig{
			TemplateDir: filepath.Join(configHome(), "pagetint", "templates"),
			PluginDir:   filepath.Join(dataHome(), "pagetint", "exporters"),
		},
	}
}

// DefaultPath is the configuration file used when none is given.
func DefaultPath() string {
	return filepath.Join(configHome(), "pagetint", "config.yaml")
}

// Load builds the configuration. An explicit path must exist; the default
// path is optional.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv applies PAGETINT_* overrides read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	overrides := []struct {
		key   string
		apply func(string) error
	}{
		{"LOG_LEVEL", setString(&c.LogLevel)},
		{"MIN_AREA", setFloat(&c.Extract.MinArea)},
		{"MAX_RANKED", setInt(&c.Extract.MaxRanked)},
		{"COLLAPSE_THRESHOLD", setFloat(&c.Extract.Collapse.Threshold)},
		{"COLLAPSE_LIMIT", setInt(&c.Extract.Collapse.Limit)},
		{"CONTRAST_THRESHOLD", setFloat(&c.Contrast.Threshold)},
		{"MAX_ISSUES", setInt(&c.Contrast.MaxIssues)},
		{"SETTLE_DELAY", setDuration(&c.Watch.SettleDelay)},
		{"QUIET_WINDOW", setDuration(&c.Watch.QuietWindow)},
		{"VIEWPORT_WIDTH", setInt(&c.Viewport.Width)},
		{"VIEWPORT_HEIGHT", setInt(&c.Viewport.Height)},
		{"BROWSER_REMOTE", setString(&c.Browser.Remote)},
		{"BROWSER_BIN", setString(&c.Browser.Bin)},
		{"BROWSER_HEADFUL", setBool(&c.Browser.Headful)},
		{"BROWSER_STEALTH", setBool(&c.Browser.Stealth)},
		{"STORE_PATH", setString(&c.Store.Path)},
		{"SERVER_ADDR", setString(&c.Server.Addr)},
		{"SERVER_ALLOW_PRIVATE", setBool(&c.Server.AllowPrivate)},
		{"TEMPLATE_DIR", setString(&c.Export.TemplateDir)},
		{"PLUGIN_DIR", setString(&c.Export.PluginDir)},
	}

	for _, o := range overrides {
		v, ok := lookup(EnvPrefix + o.key)
		if !ok {
			continue
		}
		if err := o.apply(strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, o.key, err)
		}
	}
	return nil
}

func setString(dst *string) func(string) error {
	return func(v string) error { *dst = v; return nil }
}

func setInt(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func setFloat(dst *float64) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func setBool(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

func setDuration(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if err := c.ExtractOptions().Validate(); err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	if err := c.Extract.Collapse.Validate(); err != nil {
		return fmt.Errorf("extract collapse: %w", err)
	}
	if err := c.Panel.Validate(); err != nil {
		return fmt.Errorf("panel collapse: %w", err)
	}
	if err := c.AuditOptions().Validate(); err != nil {
		return fmt.Errorf("contrast: %w", err)
	}
	if c.Watch.SettleDelay < 0 || c.Watch.QuietWindow < 0 || c.Watch.HighlightDuration < 0 {
		return fmt.Errorf("watch durations must be non-negative")
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.Viewport.Width, c.Viewport.Height)
	}
	if c.Browser.NavigationTimeout < 0 || c.Fetch.Timeout < 0 {
		return fmt.Errorf("timeouts must be non-negative")
	}
	if c.Server.MaxSessions < 0 {
		return fmt.Errorf("server max sessions must be non-negative, got %d", c.Server.MaxSessions)
	}
	return nil
}

// Logger builds the root logger at the configured level.
func (c *Config) Logger() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "pagetint",
		Level:  hclog.LevelFromString(c.LogLevel),
		Output: os.Stderr,
	})
}

// ExtractOptions returns the extractor settings.
func (c *Config) ExtractOptions() extract.Options {
	return extract.Options{
		MinArea:   c.Extract.MinArea,
		MaxRanked: c.Extract.MaxRanked,
		Policy:    c.Extract.Collapse,
	}
}

// AuditOptions returns the contrast auditor settings.
func (c *Config) AuditOptions() contrast.Options {
	return contrast.Options{Threshold: c.Contrast.Threshold, MaxIssues: c.Contrast.MaxIssues}
}

// AnalyzerOptions returns the session settings.
func (c *Config) AnalyzerOptions(logger hclog.Logger) analyzer.Options {
	return analyzer.Options{
		Extract:           c.ExtractOptions(),
		Audit:             c.AuditOptions(),
		Panel:             c.Panel,
		HighlightDuration: c.Watch.HighlightDuration,
		Logger:            logger,
	}
}

// WatchOptions returns the watcher timings.
func (c *Config) WatchOptions() analyzer.WatchOptions {
	return analyzer.WatchOptions{SettleDelay: c.Watch.SettleDelay, QuietWindow: c.Watch.QuietWindow}
}

// FetchOptions returns the HTTP download settings.
func (c *Config) FetchOptions() httputil.FetchOptions {
	return httputil.FetchOptions{Timeout: c.Fetch.Timeout, MaxBytes: c.Fetch.MaxBytes}
}

// StaticOptions returns the static renderer settings.
func (c *Config) StaticOptions(logger hclog.Logger) static.Options {
	return static.Options{
		ViewportWidth:  c.Viewport.Width,
		ViewportHeight: c.Viewport.Height,
		Logger:         logger,
	}
}

// BrowserConfig returns the Chrome manager settings.
func (c *Config) BrowserConfig(logger hclog.Logger) browser.Config {
	return browser.Config{
		RemoteURL:         c.Browser.Remote,
		Bin:               c.Browser.Bin,
		Headful:           c.Browser.Headful,
		Stealth:           c.Browser.Stealth,
		NavigationTimeout: c.Browser.NavigationTimeout,
		Viewport:          c.Viewport,
		Logger:            logger,
	}
}

func configHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	return "."
}

func dataHome() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share")
	}
	return "."
}
