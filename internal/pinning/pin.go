// Package pinning manages TLS certificate pin sets per hostname. Pins
// are digests of the certificate's public key, not the whole
// certificate, so renewing a certificate under the same key pair keeps
// the pin valid.
package pinning

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
)

// ComputePin returns the "sha256/<base64>" pin for a certificate,
// hashing its SubjectPublicKeyInfo.
func ComputePin(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.RawSubjectPublicKeyInfo)
	return "sha256/" + base64.StdEncoding.EncodeToString(sum[:])
}
