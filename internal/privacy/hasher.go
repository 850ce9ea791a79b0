package privacy

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	dErrors "charak/pkg/domain-errors"
)

// Hasher derives stable pseudonymous patient identifiers. The raw
// identifier never leaves the device; everything downstream sees only
// the clinic-salted HMAC, and the same patient hashes identically
// however their phone number was typed.
type Hasher struct {
	salt []byte
}

// NewHasher builds a Hasher bound to one clinic's salt. Salts from two
// clinics produce unlinkable hashes for the same patient.
func NewHasher(clinicSalt []byte) (*Hasher, error) {
	if len(clinicSalt) < 16 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "clinic salt must be at least 16 bytes")
	}
	salt := make([]byte, len(clinicSalt))
	copy(salt, clinicSalt)
	return &Hasher{salt: salt}, nil
}

// HashPatientID returns the hex HMAC-SHA256 of the normalized
// identifier under the clinic salt.
func (h *Hasher) HashPatientID(rawID string) (string, error) {
	norm := NormalizeIdentifier(rawID)
	if norm == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "empty patient identifier")
	}
	mac := hmac.New(sha256.New, h.salt)
	mac.Write([]byte(norm))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifyPatientID reports whether rawID hashes to expected under this
// clinic's salt. Comparison is constant time.
func (h *Hasher) VerifyPatientID(rawID, expected string) (bool, error) {
	got, err := h.HashPatientID(rawID)
	if err != nil {
		return false, err
	}
	gotRaw, err := hex.DecodeString(got)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "decode computed hash")
	}
	wantRaw, err := hex.DecodeString(expected)
	if err != nil {
		return false, dErrors.New(dErrors.CodeInvalidInput, "expected hash is not hex")
	}
	return hmac.Equal(gotRaw, wantRaw), nil
}

// NormalizeIdentifier canonicalizes a raw patient identifier before
// hashing. Phone numbers collapse to their trailing 10 digits with the
// Indian country prefix dropped, so "+919876543210", "9876543210" and
// "91-9876-543-210" are one identity. Anything that is not a phone
// number is trimmed and lowercased.
func NormalizeIdentifier(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if phone, ok := normalizePhone(trimmed); ok {
		return phone
	}
	return strings.ToLower(trimmed)
}

// normalizePhone strips separators and country prefixes from a phone
// number. Returns ok=false when the input is not phone shaped.
func normalizePhone(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	var digits []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits = append(digits, c)
		case c == '+', c == '-', c == ' ', c == '(', c == ')', c == '.':
			// separator or prefix marker, skip
		default:
			return "", false
		}
	}
	switch {
	case len(digits) == 10:
		return string(digits), true
	case len(digits) == 12 && digits[0] == '9' && digits[1] == '1':
		return string(digits[2:]), true
	default:
		return "", false
	}
}
