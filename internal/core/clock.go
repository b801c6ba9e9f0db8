// Package core implements the certporter export, import, and filter engines.
package core

import (
	"time"
)

// Clock provides time functions for testability.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
