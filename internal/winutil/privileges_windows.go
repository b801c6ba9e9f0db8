//go:build windows

// Package winutil provides platform privilege checks for certporter.
package winutil

import (
	"golang.org/x/sys/windows"
)

// Elevated reports whether the current process token carries administrator
// rights. Machine-scoped store operations require this.
func Elevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
