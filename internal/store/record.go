package store

import (
	"crypto/sha1"
	"crypto/x509"
	"encoding/hex"
	"math"
	"strings"
	"time"
)

// Record is a read-only snapshot of one stored certificate, produced by
// store enumeration and discarded when the operation that read it ends.
type Record struct {
	Subject       string    `json:"subject"`
	Issuer        string    `json:"issuer"`
	SerialNumber  string    `json:"serial_number"`
	Thumbprint    string    `json:"thumbprint"`
	NotBefore     time.Time `json:"not_before"`
	NotAfter      time.Time `json:"not_after"`
	HasPrivateKey bool      `json:"has_private_key"`
	FriendlyName  string    `json:"friendly_name,omitempty"`
}

// NewRecord builds a Record from a parsed certificate.
func NewRecord(cert *x509.Certificate, hasPrivateKey bool, friendlyName string) Record {
	return Record{
		Subject:       cert.Subject.String(),
		Issuer:        cert.Issuer.String(),
		SerialNumber:  SerialHex(cert),
		Thumbprint:    Thumbprint(cert),
		NotBefore:     cert.NotBefore,
		NotAfter:      cert.NotAfter,
		HasPrivateKey: hasPrivateKey,
		FriendlyName:  friendlyName,
	}
}

// DaysRemaining reports the rounded number of days until the certificate
// expires, negative when it already has. Computed at read time, never stored.
func (r Record) DaysRemaining(now time.Time) int {
	return int(math.Round(r.NotAfter.Sub(now).Hours() / 24))
}

// Thumbprint returns the uppercase hex SHA-1 of the DER certificate, the
// identifier the Windows store uses to recognize the same certificate.
func Thumbprint(cert *x509.Certificate) string {
	sum := sha1.Sum(cert.Raw)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// SerialHex returns the certificate serial number as uppercase hex.
func SerialHex(cert *x509.Certificate) string {
	return strings.ToUpper(cert.SerialNumber.Text(16))
}
