// Package browser drives headless Chrome through go-rod. A Tab captures the
// computed state of a page as a snapshot, draws highlight overlays and
// reports DOM mutations, which is everything a live analysis needs.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/pagetint/internal/dom/snapshot"
)

// DefaultNavigationTimeout bounds page navigation and load.
const DefaultNavigationTimeout = 30 * time.Second

// ErrClosed is returned after Close.
var ErrClosed = errors.New("browser manager is closed")

// Config configures a Manager.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of a running Chrome. Empty
	// launches a local browser.
	RemoteURL string

	// Bin overrides the Chrome binary used by the launcher.
	Bin string

	// Headful shows the browser window.
	Headful bool

	// Stealth opens tabs through go-rod/stealth.
	Stealth bool

	NavigationTimeout time.Duration
	Viewport          snapshot.Viewport

	Logger hclog.Logger
}

func (c *Config) defaults() {
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = DefaultNavigationTimeout
	}
	if c.Viewport.Width <= 0 {
		c.Viewport.Width = 1280
	}
	if c.Viewport.Height <= 0 {
		c.Viewport.Height = 800
	}
	if c.Logger == nil {
		c.Logger = hclog.NewNullLogger()
	}
}

// Manager owns the Chrome process or remote connection.
type Manager struct {
	cfg     Config
	logger  hclog.Logger
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewManager creates a Manager. Call Start before opening tabs.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg, logger: cfg.Logger.Named("browser")}
}

// Start launches Chrome, or connects to RemoteURL.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.browser != nil {
		return nil
	}

	wsURL := m.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().Context(ctx).Headless(!m.cfg.Headful)
		if m.cfg.Bin != "" {
			l = l.Bin(m.cfg.Bin)
		}
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("failed to launch chrome: %w", err)
		}
		wsURL = u
		m.lnch = l
		m.logger.Info("launched local chrome", "url", wsURL, "headful", m.cfg.Headful)
	} else {
		m.logger.Info("connecting to remote chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		m.cleanup()
		return fmt.Errorf("failed to connect to chrome: %w", err)
	}
	m.browser = b
	return nil
}

// Browser returns the connected browser, or nil before Start.
func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// Close stops a launched browser. A remote browser is left running.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.cleanup()
}

func (m *Manager) cleanup() error {
	var err error
	// A remote browser belongs to someone else; only drop the connection.
	if m.browser != nil && m.lnch != nil {
		err = m.browser.Close()
	}
	m.browser = nil
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	if err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}
