package pfx

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/github/fakeca"
	xpkcs12 "golang.org/x/crypto/pkcs12"
)

func newRSAIdentity(t *testing.T, cn string) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(4321),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatal(err)
	}
	return cert, key
}

func TestCodecRoundTrip(t *testing.T) {
	cert, key := newRSAIdentity(t, "roundtrip.example")

	for _, alg := range []Algorithm{AlgorithmLegacy, AlgorithmModern} {
		data, err := Codec{Algorithm: alg}.Encode(cert, key, NewSecretString("pw"))
		if err != nil {
			t.Fatalf("%s: Encode: %v", alg, err)
		}

		gotCert, gotKey, err := Codec{}.Decode(data, NewSecretString("pw"))
		if err != nil {
			t.Fatalf("%s: Decode: %v", alg, err)
		}
		if gotCert.Subject.CommonName != "roundtrip.example" {
			t.Errorf("%s: decoded CN = %s", alg, gotCert.Subject.CommonName)
		}
		decKey, ok := gotKey.(*rsa.PrivateKey)
		if !ok {
			t.Fatalf("%s: decoded key is %T", alg, gotKey)
		}
		if decKey.N.Cmp(key.N) != 0 {
			t.Errorf("%s: decoded key does not match", alg)
		}
	}
}

func TestCodecWrongPassword(t *testing.T) {
	cert, key := newRSAIdentity(t, "wrongpw.example")
	data, err := Codec{}.Encode(cert, key, NewSecretString("right"))
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = Codec{}.Decode(data, NewSecretString("wrong"))
	if err == nil {
		t.Fatal("decode with wrong password succeeded")
	}
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Errorf("err is %T, want *DecodeError", err)
	}
	if !IsWrongPassword(err) {
		t.Errorf("IsWrongPassword(%v) = false", err)
	}
}

func TestCodecCorruptData(t *testing.T) {
	_, _, err := Codec{}.Decode([]byte("definitely not asn1"), NewSecretString("pw"))
	if err == nil {
		t.Fatal("decode of garbage succeeded")
	}
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Errorf("err is %T, want *DecodeError", err)
	}
	if IsWrongPassword(err) {
		t.Error("corrupt data misreported as wrong password")
	}

	if _, _, err := (Codec{}).Decode(nil, NewSecretString("pw")); err == nil {
		t.Error("decode of empty input succeeded")
	}
}

func TestCodecRejectsMissingInputs(t *testing.T) {
	cert, key := newRSAIdentity(t, "partial.example")

	var encErr *EncodeError
	if _, err := (Codec{}).Encode(nil, key, NewSecretString("pw")); !errors.As(err, &encErr) {
		t.Errorf("nil cert: err = %v, want *EncodeError", err)
	}
	if _, err := (Codec{}).Encode(cert, nil, NewSecretString("pw")); !errors.As(err, &encErr) {
		t.Errorf("nil key: err = %v, want *EncodeError", err)
	}
}

// Legacy output must stay readable by the older x/crypto decoder, which is
// what some migration targets still link against.
func TestLegacyOutputDecodesWithXCrypto(t *testing.T) {
	cert, key := newRSAIdentity(t, "legacy.example")
	data, err := Codec{Algorithm: AlgorithmLegacy}.Encode(cert, key, NewSecretString("pw"))
	if err != nil {
		t.Fatal(err)
	}

	gotKey, gotCert, err := xpkcs12.Decode(data, "pw")
	if err != nil {
		t.Fatalf("x/crypto decode: %v", err)
	}
	if gotCert.Subject.CommonName != "legacy.example" {
		t.Errorf("decoded CN = %s", gotCert.Subject.CommonName)
	}
	if _, ok := gotKey.(*rsa.PrivateKey); !ok {
		t.Errorf("decoded key is %T", gotKey)
	}
}

// Containers produced elsewhere must decode too, not just our own output.
func TestDecodeForeignContainer(t *testing.T) {
	ca := fakeca.New(fakeca.IsCA)
	leaf := ca.Issue()

	cert, key, err := Codec{}.Decode(leaf.PFX("pw"), NewSecretString("pw"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !cert.Equal(leaf.Certificate) {
		t.Error("decoded certificate differs from the issued one")
	}
	if key == nil {
		t.Error("decoded key is nil")
	}
}
