// Package store models certificate store access for certporter.
package store

import (
	"crypto"
	"crypto/x509"
	"fmt"

	"github.com/pkg/errors"
)

// Scope selects which of the two certificate collections an operation
// targets. MachineScoped requires elevated privileges.
type Scope string

const (
	UserScoped    Scope = "user"
	MachineScoped Scope = "machine"
)

// String returns the scope's flag spelling.
func (s Scope) String() string {
	return string(s)
}

var (
	// ErrKeyNotExportable is returned by Identity.PrivateKey when the store
	// holds the key but will not release it.
	ErrKeyNotExportable = errors.New("private key is not exportable")

	// ErrNotFound is returned by Store.Remove when no entry matches.
	ErrNotFound = errors.New("certificate not found in store")

	// ErrDuplicate is returned by stores that refuse to hold two entries
	// with the same thumbprint.
	ErrDuplicate = errors.New("certificate already present in store")
)

// Provider opens a certificate store for a scope.
type Provider interface {
	Open(scope Scope) (Store, error)
}

// Store is an enumerable, writable certificate collection.
type Store interface {
	// Identities enumerates every certificate in the store.
	Identities() ([]Identity, error)

	// Add writes a certificate and its private key into the store.
	Add(cert *x509.Certificate, key crypto.PrivateKey, friendlyName string, exportable bool) (Record, error)

	// Remove deletes one entry with the given thumbprint.
	Remove(thumbprint string) error

	// Close releases any handle held on the store.
	Close() error
}

// Identity is one certificate (and, possibly, its private key) in a store.
type Identity interface {
	// Record returns the identity's metadata snapshot.
	Record() Record

	// Certificate returns the parsed certificate.
	Certificate() (*x509.Certificate, error)

	// PrivateKey returns the private key, or ErrKeyNotExportable when the
	// store will not release it.
	PrivateKey() (crypto.PrivateKey, error)

	// Close releases any handle held on the identity.
	Close()
}

// PFXExporter is an optional fast path on identities whose backing store can
// produce a PKCS#12 container natively (the Windows store can, even for keys
// it will not hand out as PrivateKey).
type PFXExporter interface {
	ExportPFX(password []byte) ([]byte, error)
}

// PFXImporter is an optional fast path on stores that can ingest a PKCS#12
// container natively without the caller decoding it first.
type PFXImporter interface {
	ImportPFX(data []byte, password []byte, exportable bool) (Record, error)
}

// Thumbprints enumerates a store into a thumbprint lookup set. Identities
// are closed before returning.
func Thumbprints(s Store) (map[string]bool, error) {
	idents, err := s.Identities()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate store: %w", err)
	}
	set := make(map[string]bool, len(idents))
	for _, id := range idents {
		set[id.Record().Thumbprint] = true
		id.Close()
	}
	return set, nil
}

// fixedProvider returns the same store for every scope.
type fixedProvider struct {
	s Store
}

// FixedProvider wraps a single store as a Provider, ignoring the requested
// scope. Used by tests and by operations that already hold a store.
func FixedProvider(s Store) Provider {
	return fixedProvider{s: s}
}

func (p fixedProvider) Open(Scope) (Store, error) {
	return p.s, nil
}
