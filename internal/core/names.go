package core

import (
	"strings"

	"certporter/internal/store"
)

const serialPrefixLen = 8

// reservedChars are the filesystem characters replaced during
// sanitization.
const reservedChars = `\/:*?"<>|`

// BaseName derives the deterministic, filesystem-safe base filename for a
// certificate: the sanitized subject CN plus a serial-number prefix.
//
// The CN is taken from the subject DN up to the first comma. A CN that
// itself contains an embedded comma is therefore truncated at it; callers
// migrating such certificates get a shorter but still unique name thanks
// to the serial suffix.
func BaseName(rec store.Record) string {
	component := commonName(rec.Subject)
	if component == "" {
		component = rec.Subject
	}
	component = sanitizeComponent(component)

	serial := rec.SerialNumber
	if len(serial) > serialPrefixLen {
		serial = serial[:serialPrefixLen]
	}

	if component == "" {
		return "Cert_" + serial
	}
	return component + "_" + serial
}

// ResolveCollision returns the output filename for base: "<base>.pfx"
// unless exists reports a file of that name, in which case a thumbprint
// prefix is appended, then the full thumbprint. A collision surviving all
// three candidates means the same certificate, which a re-export
// overwrites; the audit log is the authoritative record of what was
// written.
func ResolveCollision(base, thumbprint string, exists func(string) bool) string {
	name := base + ".pfx"
	if !exists(name) {
		return name
	}
	prefix := thumbprint
	if len(prefix) > serialPrefixLen {
		prefix = prefix[:serialPrefixLen]
	}
	name = base + "_" + prefix + ".pfx"
	if !exists(name) {
		return name
	}
	return base + "_" + thumbprint + ".pfx"
}

// commonName extracts the CN attribute value from a DN string, empty when
// the DN has none. First comma wins.
func commonName(subject string) string {
	rest := subject
	for {
		idx := strings.Index(rest, "CN=")
		if idx < 0 {
			return ""
		}
		// Require the attribute to start the DN or follow a separator so
		// substrings like "DCN=" do not match.
		if idx == 0 || rest[idx-1] == ',' || rest[idx-1] == ' ' || rest[idx-1] == '+' {
			value := rest[idx+len("CN="):]
			if comma := strings.Index(value, ","); comma >= 0 {
				value = value[:comma]
			}
			return strings.TrimSpace(value)
		}
		rest = rest[idx+len("CN="):]
	}
}

// sanitizeComponent replaces every filesystem-reserved character with an
// underscore.
func sanitizeComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(reservedChars, r) {
			b.WriteRune('_')
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
