package store

import (
	"crypto"
	"crypto/x509"
)

// MemStore is an in-memory Store. It mirrors the native store's tolerance
// for duplicate thumbprints: Add always appends, Remove deletes the most
// recently added match. Zero value is ready to use.
type MemStore struct {
	entries []*memEntry
}

type memEntry struct {
	record     Record
	cert       *x509.Certificate
	key        crypto.PrivateKey
	exportable bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Identities enumerates the store.
func (m *MemStore) Identities() ([]Identity, error) {
	idents := make([]Identity, 0, len(m.entries))
	for _, e := range m.entries {
		idents = append(idents, memIdentity{e})
	}
	return idents, nil
}

// Add appends an entry. A nil key models a certificate stored without its
// private key; exportable=false models a key the store will not release.
func (m *MemStore) Add(cert *x509.Certificate, key crypto.PrivateKey, friendlyName string, exportable bool) (Record, error) {
	rec := NewRecord(cert, key != nil, friendlyName)
	m.entries = append(m.entries, &memEntry{
		record:     rec,
		cert:       cert,
		key:        key,
		exportable: exportable,
	})
	return rec, nil
}

// Remove deletes the most recently added entry with the given thumbprint.
func (m *MemStore) Remove(thumbprint string) error {
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].record.Thumbprint == thumbprint {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}

// Len reports the number of entries held.
func (m *MemStore) Len() int {
	return len(m.entries)
}

type memIdentity struct {
	e *memEntry
}

func (i memIdentity) Record() Record {
	return i.e.record
}

func (i memIdentity) Certificate() (*x509.Certificate, error) {
	return i.e.cert, nil
}

func (i memIdentity) PrivateKey() (crypto.PrivateKey, error) {
	if i.e.key == nil || !i.e.exportable {
		return nil, ErrKeyNotExportable
	}
	return i.e.key, nil
}

func (i memIdentity) Close() {}
