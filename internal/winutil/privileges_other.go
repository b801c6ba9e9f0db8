//go:build !windows

// Package winutil provides platform privilege checks for certporter.
package winutil

import (
	"os"
)

// Elevated reports whether the process runs as root, the non-Windows
// equivalent of the administrator gate on machine-scoped stores.
func Elevated() bool {
	return os.Geteuid() == 0
}
