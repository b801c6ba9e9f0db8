// Package pfx wraps PKCS#12 container encoding and decoding for certporter.
package pfx

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrEmptyPassword is returned when a supplied password is empty or all
// whitespace. It is a fatal, pre-store validation error.
var ErrEmptyPassword = errors.New("password must not be empty")

// WeakPasswordLength is the advisory minimum; shorter passwords are allowed
// but the CLI warns about them.
const WeakPasswordLength = 4

// Secret holds a password for the minimum necessary span. It is never
// logged (String is redacted) and callers zero it after use.
type Secret struct {
	b []byte
}

// NewSecret copies the given bytes into a Secret. The caller keeps
// ownership of the input slice.
func NewSecret(b []byte) *Secret {
	c := make([]byte, len(b))
	copy(c, b)
	return &Secret{b: c}
}

// NewSecretString builds a Secret from a string.
func NewSecretString(s string) *Secret {
	return &Secret{b: []byte(s)}
}

// Bytes exposes the raw password for one codec or store call. The returned
// slice aliases the secret; do not retain it.
func (s *Secret) Bytes() []byte {
	return s.b
}

// Zero overwrites the password bytes. The secret is unusable afterwards.
func (s *Secret) Zero() {
	for i := range s.b {
		s.b[i] = 0
	}
	s.b = s.b[:0]
}

// String implements fmt.Stringer with a redacted value so a Secret can
// never leak through logging.
func (s *Secret) String() string {
	return "[redacted]"
}

// Validate returns ErrEmptyPassword when the secret is empty or all
// whitespace.
func (s *Secret) Validate() error {
	if s == nil || strings.TrimSpace(string(s.b)) == "" {
		return ErrEmptyPassword
	}
	return nil
}

// Weak reports whether the password is shorter than the advisory minimum.
// A weak password is a warning to the caller, never a validation error.
func (s *Secret) Weak() bool {
	return utf8.RuneCount(s.b) < WeakPasswordLength
}
