package store

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

const (
	certBlockType = "CERTIFICATE"
	keyBlockType  = "PRIVATE KEY"

	friendlyNameHeader = "FriendlyName"
	exportableHeader   = "Exportable"
)

// FileStore is a portable directory-backed certificate store: one PEM file
// per entry, named by thumbprint, holding a CERTIFICATE block and an
// optional PKCS#8 PRIVATE KEY block. Key material makes the files 0600.
//
// Unlike the native store, a FileStore refuses duplicate thumbprints: Add
// returns ErrDuplicate rather than silently overwriting an entry.
type FileStore struct {
	root string
}

// OpenFileStore opens (creating if needed) the directory store at root.
func OpenFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, errors.Wrapf(err, "failed to create store directory %s", root)
	}
	return &FileStore{root: root}, nil
}

// Root returns the backing directory.
func (f *FileStore) Root() string {
	return f.root
}

// Identities enumerates the store in thumbprint order.
func (f *FileStore) Identities() ([]Identity, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read store directory %s", f.root)
	}

	var idents []Identity
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".pem") {
			continue
		}
		id, err := readFileIdentity(filepath.Join(f.root, e.Name()))
		if err != nil {
			return nil, err
		}
		idents = append(idents, id)
	}
	sort.Slice(idents, func(i, j int) bool {
		return idents[i].Record().Thumbprint < idents[j].Record().Thumbprint
	})
	return idents, nil
}

// Add writes a new entry. Returns ErrDuplicate if the thumbprint is already
// present.
func (f *FileStore) Add(cert *x509.Certificate, key crypto.PrivateKey, friendlyName string, exportable bool) (Record, error) {
	rec := NewRecord(cert, key != nil, friendlyName)
	path := f.entryPath(rec.Thumbprint)

	if _, err := os.Stat(path); err == nil {
		return Record{}, ErrDuplicate
	}

	headers := map[string]string{}
	if friendlyName != "" {
		headers[friendlyNameHeader] = friendlyName
	}
	if key != nil && !exportable {
		headers[exportableHeader] = "false"
	}

	var buf strings.Builder
	if err := pem.Encode(&buf, &pem.Block{Type: certBlockType, Headers: headers, Bytes: cert.Raw}); err != nil {
		return Record{}, errors.Wrap(err, "failed to encode certificate block")
	}
	if key != nil {
		keyDER, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			return Record{}, errors.Wrap(err, "failed to marshal private key")
		}
		if err := pem.Encode(&buf, &pem.Block{Type: keyBlockType, Bytes: keyDER}); err != nil {
			return Record{}, errors.Wrap(err, "failed to encode key block")
		}
	}

	if err := os.WriteFile(path, []byte(buf.String()), 0600); err != nil {
		return Record{}, errors.Wrapf(err, "failed to write store entry %s", path)
	}
	return rec, nil
}

// Remove deletes the entry with the given thumbprint.
func (f *FileStore) Remove(thumbprint string) error {
	path := f.entryPath(thumbprint)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return errors.Wrapf(err, "failed to remove store entry %s", path)
	}
	return nil
}

// Close is a no-op; the store holds no long-lived handle.
func (f *FileStore) Close() error {
	return nil
}

func (f *FileStore) entryPath(thumbprint string) string {
	return filepath.Join(f.root, strings.ToUpper(thumbprint)+".pem")
}

func readFileIdentity(path string) (Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read store entry %s", path)
	}

	var cert *x509.Certificate
	var keyDER []byte
	friendlyName := ""
	exportable := true

	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		switch block.Type {
		case certBlockType:
			cert, err = x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse certificate in %s", path)
			}
			friendlyName = block.Headers[friendlyNameHeader]
			if block.Headers[exportableHeader] == "false" {
				exportable = false
			}
		case keyBlockType:
			keyDER = block.Bytes
		}
	}
	if cert == nil {
		return nil, errors.Errorf("store entry %s contains no certificate", path)
	}

	return &fileIdentity{
		record:     NewRecord(cert, keyDER != nil, friendlyName),
		cert:       cert,
		keyDER:     keyDER,
		exportable: exportable,
	}, nil
}

type fileIdentity struct {
	record     Record
	cert       *x509.Certificate
	keyDER     []byte
	exportable bool
}

func (i *fileIdentity) Record() Record {
	return i.record
}

func (i *fileIdentity) Certificate() (*x509.Certificate, error) {
	return i.cert, nil
}

func (i *fileIdentity) PrivateKey() (crypto.PrivateKey, error) {
	if i.keyDER == nil || !i.exportable {
		return nil, ErrKeyNotExportable
	}
	key, err := x509.ParsePKCS8PrivateKey(i.keyDER)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse stored private key")
	}
	return key, nil
}

func (i *fileIdentity) Close() {}

// DefaultRoot returns the default FileStore directory for a scope: a
// per-user config location for UserScoped, a system location for
// MachineScoped.
func DefaultRoot(scope Scope) (string, error) {
	if scope == UserScoped {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", errors.Wrap(err, "failed to resolve user config directory")
		}
		return filepath.Join(dir, "certporter", "store"), nil
	}

	if runtime.GOOS == "windows" {
		base := os.Getenv("ProgramData")
		if base == "" {
			base = `C:\ProgramData`
		}
		return filepath.Join(base, "certporter", "store"), nil
	}
	return filepath.Join("/etc", "certporter", "store"), nil
}
