// Package version holds build identification, overridable at link time
// with -ldflags "-X .../internal/version.Version=v1.2.3".
package version

var (
	Version = "0.3.0-dev"
	Commit  = "unknown"
)
