// Package version reports build information for pagetint. The variables are
// overridden at link time:
//
//	-ldflags "-X github.com/jmylchreest/pagetint/internal/version.Version=x.y.z"
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release version, "dev" for local builds.
	Version = "dev"

	// Commit is the git revision the binary was built from.
	Commit = "unknown"

	// Date is the build time in RFC3339 form.
	Date = "unknown"

	GoVersion = runtime.Version()
)

// Info is the JSON form of the build information, used by `pagetint version
// --json` and the server's /healthz endpoint.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetInfo returns the current build information.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns a one-line description of the build.
func String() string {
	info := GetInfo()
	if Commit == "unknown" || Date == "unknown" {
		return fmt.Sprintf("pagetint %s (%s, %s)", info.Version, info.GoVersion, info.Platform)
	}
	commit := info.Commit
	if len(commit) > 8 {
		commit = commit[:8]
	}
	return fmt.Sprintf("pagetint %s (commit %s, built %s, %s, %s)",
		info.Version, commit, info.Date, info.GoVersion, info.Platform)
}

// UserAgent is sent with every outbound HTTP request.
func UserAgent() string {
	return "pagetint/" + Version
}
