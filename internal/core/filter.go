package core

import (
	"strings"
	"time"

	"certporter/internal/store"
)

// FilterSpec selects certificates for export. The predicates are
// conjunctive; an empty substring pattern is a no-op, not a match-nothing.
type FilterSpec struct {
	// MinDaysRemaining keeps only certificates expiring strictly later
	// than now + this many days. Zero keeps everything not yet expired.
	MinDaysRemaining int

	// Subject, when non-empty, requires a case-insensitive substring match
	// anywhere in the subject DN.
	Subject string

	// Issuer is the same match against the issuer DN.
	Issuer string
}

// ApplyFilter returns the records satisfying every predicate in spec, in
// input order. Pure function; an empty result is a normal outcome.
func ApplyFilter(records []store.Record, spec FilterSpec, now time.Time) []store.Record {
	cutoff := now.Add(time.Duration(spec.MinDaysRemaining) * 24 * time.Hour)

	out := make([]store.Record, 0, len(records))
	for _, rec := range records {
		// Date first: cheapest, and the usual reason for an empty result.
		if !rec.NotAfter.After(cutoff) {
			continue
		}
		if !matchSubstring(rec.Subject, spec.Subject) {
			continue
		}
		if !matchSubstring(rec.Issuer, spec.Issuer) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func matchSubstring(value, pattern string) bool {
	if pattern == "" {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}
