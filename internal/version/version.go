// Package version records the certporter build version.
package version

// Version is the semantic version of this build, overridable at link time
// with -ldflags "-X certporter/internal/version.Version=...".
var Version = "v0.1.0"
