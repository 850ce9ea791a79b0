package pinning

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
)

// Dialer performs the live handshake of a break test. Abstracted so
// tests can run against a local listener instead of the public host.
type Dialer interface {
	// DialAndMatch connects to hostname:443, verifies the presented
	// chain against pins, and returns the matched pin.
	DialAndMatch(ctx context.Context, hostname string, pins []string) (string, error)
}

// tlsDialer is the production Dialer using crypto/tls.
type tlsDialer struct{}

func (tlsDialer) DialAndMatch(ctx context.Context, hostname string, pins []string) (string, error) {
	var matched string
	cfg := &tls.Config{
		ServerName:            hostname,
		VerifyPeerCertificate: verifyPins(pins, &matched),
	}

	d := tls.Dialer{NetDialer: &net.Dialer{}, Config: cfg}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(hostname, "443"))
	if err != nil {
		return "", err
	}
	conn.Close()
	return matched, nil
}

// NewTLSConfig builds a tls.Config enforcing the given pin set on top of
// standard chain verification. Use this for the live HTTP client; the
// pin set should come from Service.PinSet.
func NewTLSConfig(hostname string, pins []string) *tls.Config {
	var matched string
	return &tls.Config{
		ServerName:            hostname,
		VerifyPeerCertificate: verifyPins(pins, &matched),
	}
}

// verifyPins returns a VerifyPeerCertificate callback accepting a chain
// if any certificate in it pins to a value in pins. Pinning any chain
// element (leaf or intermediate) matches how mobile pinners behave, so a
// leaf renewal under a pinned intermediate does not brick the client.
func verifyPins(pins []string, matched *string) func([][]byte, [][]*x509.Certificate) error {
	pinSet := make(map[string]bool, len(pins))
	for _, p := range pins {
		pinSet[p] = true
	}
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		for _, raw := range rawCerts {
			cert, err := x509.ParseCertificate(raw)
			if err != nil {
				continue
			}
			pin := ComputePin(cert)
			if pinSet[pin] {
				*matched = pin
				return nil
			}
		}
		return fmt.Errorf("no presented certificate matches the pin set (%d pins)", len(pins))
	}
}
