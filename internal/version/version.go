// Package version carries build metadata stamped in via -ldflags.
package version

var (
	// Version is the fxalert release version.
	Version = "dev"
	// Commit is the git revision the binary was built from.
	Commit = "unknown"
	// BuildDate is the UTC build timestamp.
	BuildDate = "unknown"
)
