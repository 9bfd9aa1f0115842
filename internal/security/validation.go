// Package security validates untrusted input: page URLs handed to the
// server, exporter binaries and file names returned by exporters.
package security

import (
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strings"
)

// ValidatePageURL checks that raw is an absolute http(s) URL. Unless
// allowPrivate is set, loopback, private and link-local hosts are rejected
// so a shared server cannot be used to probe the local network.
func ValidatePageURL(raw string, allowPrivate bool) error {
	if raw == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("only http and https URLs are allowed (got %q)", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL must have a hostname")
	}

	if !allowPrivate && isLocalOrPrivateHost(strings.ToLower(parsed.Hostname())) {
		return fmt.Errorf("URL cannot point to local or private hosts: %s", parsed.Hostname())
	}
	return nil
}

// ValidatePluginPath checks that pluginPath stays within baseDir.
func ValidatePluginPath(pluginPath, baseDir string) error {
	if pluginPath == "" {
		return fmt.Errorf("empty plugin path")
	}

	absPlugin, err := filepath.Abs(filepath.Clean(pluginPath))
	if err != nil {
		return fmt.Errorf("invalid plugin path: %w", err)
	}
	absBase, err := filepath.Abs(filepath.Clean(baseDir))
	if err != nil {
		return fmt.Errorf("invalid base directory: %w", err)
	}

	if !within(absPlugin, absBase) {
		return fmt.Errorf("plugin path must be within %s (attempted path traversal)", absBase)
	}
	return nil
}

// ValidateOutputName checks that a file name produced by an exporter is a
// relative path that stays inside baseDir once joined.
func ValidateOutputName(name, baseDir string) error {
	if name == "" {
		return fmt.Errorf("empty file name")
	}
	if filepath.IsAbs(name) {
		return fmt.Errorf("absolute output path %q is not allowed", name)
	}
	for _, part := range strings.Split(filepath.ToSlash(name), "/") {
		if part == ".." {
			return fmt.Errorf("output path %q contains directory traversal", name)
		}
	}

	base := filepath.Clean(baseDir)
	if !within(filepath.Join(base, name), base) {
		return fmt.Errorf("output path %q would escape %s", name, base)
	}
	return nil
}

func within(path, base string) bool {
	return path == base || strings.HasPrefix(path, base+string(filepath.Separator))
}

func isLocalOrPrivateHost(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(strings.Trim(host, "[]"))
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}
