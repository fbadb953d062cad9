// Package version holds build metadata set with -ldflags -X.
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns a one-line description of the build.
func Info() string {
	return fmt.Sprintf("gatewire %s (commit %s, built %s)", Version, Commit, Date)
}
