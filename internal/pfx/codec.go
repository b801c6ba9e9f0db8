package pfx

import (
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"

	"software.sslmate.com/src/go-pkcs12"
)

// Algorithm selects the PKCS#12 encryption scheme.
type Algorithm string

const (
	// AlgorithmLegacy uses the 3DES/RC2+SHA-1 scheme every CSP generation
	// understands. It is the default because migration targets include old
	// providers.
	AlgorithmLegacy Algorithm = "legacy"

	// AlgorithmModern uses PBES2 with AES-256-CBC and PBKDF2.
	AlgorithmModern Algorithm = "modern"
)

// EncodeError wraps a failure to build a PKCS#12 container.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("PKCS#12 encode failed: %v", e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// DecodeError wraps a failure to parse a PKCS#12 container: wrong password,
// corrupt data, or no certificate inside.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("PKCS#12 decode failed: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsWrongPassword reports whether err is a decode failure caused by an
// incorrect password.
func IsWrongPassword(err error) bool {
	return errors.Is(err, pkcs12.ErrIncorrectPassword)
}

// Codec encodes and decodes password-protected PKCS#12 containers. The
// zero value uses AlgorithmLegacy.
type Codec struct {
	Algorithm Algorithm
}

// Encode builds a PFX container holding the certificate and private key.
// The password is read once and not retained.
func (c Codec) Encode(cert *x509.Certificate, key crypto.PrivateKey, password *Secret) ([]byte, error) {
	if cert == nil {
		return nil, &EncodeError{Err: errors.New("no certificate supplied")}
	}
	if key == nil {
		return nil, &EncodeError{Err: errors.New("no private key supplied")}
	}

	enc := pkcs12.LegacyDES
	if c.Algorithm == AlgorithmModern {
		enc = pkcs12.Modern
	}
	data, err := enc.Encode(key, cert, nil, string(password.Bytes()))
	if err != nil {
		return nil, &EncodeError{Err: err}
	}
	return data, nil
}

// Decode parses a PFX container, returning the leaf certificate and private
// key inside. Bundled CA certificates are tolerated and dropped. Fails with
// a DecodeError on a wrong password, a corrupt or truncated container, or a
// container without a certificate.
func (c Codec) Decode(data []byte, password *Secret) (*x509.Certificate, crypto.PrivateKey, error) {
	if len(data) == 0 {
		return nil, nil, &DecodeError{Err: errors.New("empty container")}
	}

	key, cert, _, err := pkcs12.DecodeChain(data, string(password.Bytes()))
	if err != nil {
		return nil, nil, &DecodeError{Err: err}
	}
	if cert == nil {
		return nil, nil, &DecodeError{Err: errors.New("container holds no certificate")}
	}
	return cert, key, nil
}
