// Package version holds build-time version information.
package version

import "fmt"

// Set via -ldflags at build time, e.g.
//
//	go build -ldflags "-X emojigen/internal/version.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns a human-readable version string.
func Info() string {
	return fmt.Sprintf("emojigen %s (commit %s, built %s)", Version, Commit, Date)
}
