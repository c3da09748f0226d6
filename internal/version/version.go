// Package version provides build-time version information.
package version

import "fmt"

// These variables are set at build time using -ldflags
var (
	// Version is the semantic version
	Version = "0.1.0"

	// Revision is the git commit hash
	Revision = "unknown"

	// BuildTime is the UTC time when the binary was built
	BuildTime = "unknown"
)

// String formats the version the way report headers print it.
func String() string {
	return fmt.Sprintf("%s, revision id: %s", Version, Revision)
}
