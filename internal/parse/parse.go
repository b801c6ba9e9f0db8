// Package parse provides flag validation and normalization for the
// certporter CLI.
package parse

import (
	"fmt"
	"strings"

	"certporter/internal/core"
	"certporter/internal/pfx"
	"certporter/internal/store"
)

// Scope normalizes a --scope flag value.
func Scope(s string) (store.Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return store.UserScoped, nil
	case "machine":
		return store.MachineScoped, nil
	default:
		return "", fmt.Errorf("invalid --scope: must be user or machine")
	}
}

// Mode normalizes a --mode flag value. Empty selects the default
// (pre-validation).
func Mode(s string) (core.ImportMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "prevalidate":
		return core.ModePreValidate, nil
	case "direct":
		return core.ModeDirect, nil
	default:
		return "", fmt.Errorf("invalid --mode: must be prevalidate or direct")
	}
}

// Algorithm normalizes an --algorithm flag value. Empty selects legacy,
// the scheme old providers understand.
func Algorithm(s string) (pfx.Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "legacy":
		return pfx.AlgorithmLegacy, nil
	case "modern":
		return pfx.AlgorithmModern, nil
	default:
		return "", fmt.Errorf("invalid --algorithm: must be legacy or modern")
	}
}

// MinDays validates a --min-days flag value.
func MinDays(n int) error {
	if n < 0 {
		return fmt.Errorf("invalid --min-days: must be >= 0")
	}
	return nil
}
