//go:build windows

package store

import (
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"syscall"
	"unicode/utf16"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
	"software.sslmate.com/src/go-pkcs12"
)

var (
	modcrypt32 = syscall.NewLazyDLL("crypt32.dll")

	procPFXImportCertStore                = modcrypt32.NewProc("PFXImportCertStore")
	procPFXExportCertStoreEx              = modcrypt32.NewProc("PFXExportCertStoreEx")
	procCertGetCertificateContextProperty = modcrypt32.NewProc("CertGetCertificateContextProperty")
)

const (
	x509ASNEncoding  = 0x00000001
	pkcs7ASNEncoding = 0x00010000

	certStoreProvSystemW = 10
	certStoreProvMemory  = 2

	certSystemStoreCurrentUser  = 0x00010000
	certSystemStoreLocalMachine = 0x00020000

	certStoreAddAlways = 4

	// CertGetCertificateContextProperty identifiers.
	certKeyProvInfoPropID  = 2
	certFriendlyNamePropID = 11

	// PFXImportCertStore flags.
	cryptExportable   = 0x00000001
	cryptMachineKeyset = 0x00000020
	cryptUserKeyset    = 0x00001000

	// PFXExportCertStoreEx flags.
	exportPrivateKeys               = 0x0004
	reportNotAbleToExportPrivateKey = 0x0010
)

// cryptDataBlob mirrors CRYPT_DATA_BLOB.
type cryptDataBlob struct {
	size uint32
	data *byte
}

// systemProvider opens the Windows "MY" system store for a scope via
// crypt32.
type systemProvider struct{}

// DefaultProvider returns the platform's store provider.
func DefaultProvider() Provider {
	return systemProvider{}
}

func (systemProvider) Open(scope Scope) (Store, error) {
	flags := uint32(certSystemStoreCurrentUser)
	if scope == MachineScoped {
		flags = certSystemStoreLocalMachine
	}

	name, err := windows.UTF16PtrFromString("MY")
	if err != nil {
		return nil, err
	}
	handle, err := windows.CertOpenStore(
		certStoreProvSystemW,
		0,
		0,
		flags,
		uintptr(unsafe.Pointer(name)),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s certificate store", scope)
	}
	return &winStore{handle: handle, scope: scope}, nil
}

// winStore is a handle on a Windows system certificate store.
type winStore struct {
	handle windows.Handle
	scope  Scope
}

// Identities enumerates the store.
func (s *winStore) Identities() ([]Identity, error) {
	var idents []Identity
	var ctx *windows.CertContext
	for {
		var err error
		ctx, err = windows.CertEnumCertificatesInStore(s.handle, ctx)
		if err != nil || ctx == nil {
			break
		}

		der := make([]byte, ctx.Length)
		copy(der, unsafe.Slice(ctx.EncodedCert, ctx.Length))
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			// Skip entries Go cannot parse rather than failing the run.
			continue
		}

		dup := windows.CertDuplicateCertificateContext(ctx)
		idents = append(idents, &winIdentity{
			record: NewRecord(cert, hasKeyProvInfo(dup), contextFriendlyName(dup)),
			cert:   cert,
			ctx:    dup,
		})
	}
	return idents, nil
}

// Add writes a decoded certificate+key pair into the store. The pair is
// staged through an ephemeral PKCS#12 container so the platform attaches
// the key to the certificate the way PFXImportCertStore does.
func (s *winStore) Add(cert *x509.Certificate, key crypto.PrivateKey, friendlyName string, exportable bool) (Record, error) {
	if key == nil {
		return s.addCertOnly(cert, friendlyName)
	}

	pw, err := ephemeralPassword()
	if err != nil {
		return Record{}, err
	}
	data, err := pkcs12.LegacyDES.Encode(key, cert, nil, pw)
	if err != nil {
		return Record{}, errors.Wrap(err, "failed to stage certificate for import")
	}
	return s.ImportPFX(data, []byte(pw), exportable)
}

func (s *winStore) addCertOnly(cert *x509.Certificate, friendlyName string) (Record, error) {
	ctx, err := windows.CertCreateCertificateContext(
		x509ASNEncoding|pkcs7ASNEncoding,
		&cert.Raw[0],
		uint32(len(cert.Raw)),
	)
	if err != nil {
		return Record{}, errors.Wrap(err, "failed to create certificate context")
	}
	defer windows.CertFreeCertificateContext(ctx)

	if err := windows.CertAddCertificateContextToStore(s.handle, ctx, certStoreAddAlways, nil); err != nil {
		return Record{}, errors.Wrap(err, "failed to add certificate to store")
	}
	return NewRecord(cert, false, friendlyName), nil
}

// ImportPFX ingests a PKCS#12 container natively via PFXImportCertStore and
// moves its contents into this store.
func (s *winStore) ImportPFX(data []byte, password []byte, exportable bool) (Record, error) {
	if len(data) == 0 {
		return Record{}, errors.New("PKCS#12 container is empty")
	}
	pwPtr, err := windows.UTF16PtrFromString(string(password))
	if err != nil {
		return Record{}, err
	}

	blob := cryptDataBlob{size: uint32(len(data)), data: &data[0]}
	flags := uintptr(cryptUserKeyset)
	if s.scope == MachineScoped {
		flags = cryptMachineKeyset
	}
	if exportable {
		flags |= cryptExportable
	}

	tmp, _, callErr := procPFXImportCertStore.Call(
		uintptr(unsafe.Pointer(&blob)),
		uintptr(unsafe.Pointer(pwPtr)),
		flags,
	)
	if tmp == 0 {
		return Record{}, errors.Wrap(callErr, "PFXImportCertStore failed")
	}
	tmpStore := windows.Handle(tmp)
	defer windows.CertCloseStore(tmpStore, 0)

	var rec Record
	var ctx *windows.CertContext
	for {
		ctx, err = windows.CertEnumCertificatesInStore(tmpStore, ctx)
		if err != nil || ctx == nil {
			break
		}
		if err := windows.CertAddCertificateContextToStore(s.handle, ctx, certStoreAddAlways, nil); err != nil {
			return Record{}, errors.Wrap(err, "failed to add imported certificate to store")
		}

		der := make([]byte, ctx.Length)
		copy(der, unsafe.Slice(ctx.EncodedCert, ctx.Length))
		if cert, perr := x509.ParseCertificate(der); perr == nil {
			rec = NewRecord(cert, true, contextFriendlyName(ctx))
		}
	}
	if rec.Thumbprint == "" {
		return Record{}, errors.New("PKCS#12 container held no certificate")
	}
	return rec, nil
}

// Remove deletes one entry with the given thumbprint.
func (s *winStore) Remove(thumbprint string) error {
	var ctx *windows.CertContext
	for {
		var err error
		ctx, err = windows.CertEnumCertificatesInStore(s.handle, ctx)
		if err != nil || ctx == nil {
			return ErrNotFound
		}

		der := unsafe.Slice(ctx.EncodedCert, ctx.Length)
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			continue
		}
		if Thumbprint(cert) == thumbprint {
			// Deleting invalidates the context, so hand the delete a
			// duplicate and keep enumerating off the original.
			dup := windows.CertDuplicateCertificateContext(ctx)
			if err := windows.CertDeleteCertificateFromStore(dup); err != nil {
				return errors.Wrap(err, "failed to delete certificate from store")
			}
			return nil
		}
	}
}

// Close releases the store handle.
func (s *winStore) Close() error {
	return windows.CertCloseStore(s.handle, 0)
}

// winIdentity is one certificate in a Windows store.
type winIdentity struct {
	record Record
	cert   *x509.Certificate
	ctx    *windows.CertContext
}

func (i *winIdentity) Record() Record {
	return i.record
}

func (i *winIdentity) Certificate() (*x509.Certificate, error) {
	return i.cert, nil
}

// PrivateKey always fails for the Windows store: CSP/KSP keys are not
// extractable as Go objects. Export goes through ExportPFX instead.
func (i *winIdentity) PrivateKey() (crypto.PrivateKey, error) {
	return nil, ErrKeyNotExportable
}

// ExportPFX produces a PKCS#12 container for this identity via
// PFXExportCertStoreEx, staging the certificate through a memory store so
// only this identity is exported.
func (i *winIdentity) ExportPFX(password []byte) ([]byte, error) {
	mem, err := windows.CertOpenStore(certStoreProvMemory, 0, 0, 0, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create memory store")
	}
	defer windows.CertCloseStore(mem, 0)

	if err := windows.CertAddCertificateContextToStore(mem, i.ctx, certStoreAddAlways, nil); err != nil {
		return nil, errors.Wrap(err, "failed to stage certificate")
	}

	pwPtr, err := windows.UTF16PtrFromString(string(password))
	if err != nil {
		return nil, err
	}
	flags := uintptr(exportPrivateKeys | reportNotAbleToExportPrivateKey)

	// First call sizes the blob, second call fills it.
	var blob cryptDataBlob
	ret, _, callErr := procPFXExportCertStoreEx.Call(
		uintptr(mem),
		uintptr(unsafe.Pointer(&blob)),
		uintptr(unsafe.Pointer(pwPtr)),
		0,
		flags,
	)
	if ret == 0 {
		return nil, errors.Wrap(callErr, "PFXExportCertStoreEx failed (key may not be exportable)")
	}

	buf := make([]byte, blob.size)
	blob.data = &buf[0]
	ret, _, callErr = procPFXExportCertStoreEx.Call(
		uintptr(mem),
		uintptr(unsafe.Pointer(&blob)),
		uintptr(unsafe.Pointer(pwPtr)),
		0,
		flags,
	)
	if ret == 0 {
		return nil, errors.Wrap(callErr, "PFXExportCertStoreEx failed")
	}
	return buf[:blob.size], nil
}

func (i *winIdentity) Close() {
	if i.ctx != nil {
		windows.CertFreeCertificateContext(i.ctx)
		i.ctx = nil
	}
}

// hasKeyProvInfo reports whether the certificate context carries key
// provider info, the store's marker for an associated private key.
func hasKeyProvInfo(ctx *windows.CertContext) bool {
	var size uint32
	ret, _, _ := procCertGetCertificateContextProperty.Call(
		uintptr(unsafe.Pointer(ctx)),
		certKeyProvInfoPropID,
		0,
		uintptr(unsafe.Pointer(&size)),
	)
	return ret != 0
}

// contextFriendlyName reads the friendly-name property, empty when unset.
func contextFriendlyName(ctx *windows.CertContext) string {
	var size uint32
	ret, _, _ := procCertGetCertificateContextProperty.Call(
		uintptr(unsafe.Pointer(ctx)),
		certFriendlyNamePropID,
		0,
		uintptr(unsafe.Pointer(&size)),
	)
	if ret == 0 || size < 2 {
		return ""
	}

	buf := make([]byte, size)
	ret, _, _ = procCertGetCertificateContextProperty.Call(
		uintptr(unsafe.Pointer(ctx)),
		certFriendlyNamePropID,
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(unsafe.Pointer(&size)),
	)
	if ret == 0 {
		return ""
	}

	u16 := make([]uint16, 0, size/2)
	for i := 0; i+1 < int(size); i += 2 {
		u16 = append(u16, uint16(buf[i])|uint16(buf[i+1])<<8)
	}
	// Drop the trailing NUL.
	if n := len(u16); n > 0 && u16[n-1] == 0 {
		u16 = u16[:n-1]
	}
	return string(utf16.Decode(u16))
}

// ephemeralPassword generates a random password for staging a key through
// an in-memory PKCS#12 container.
func ephemeralPassword() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "failed to generate staging password")
	}
	return hex.EncodeToString(b), nil
}
