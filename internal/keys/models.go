package keys

import (
	"fmt"
	"time"

	dErrors "charak/pkg/domain-errors"
)

// Purpose names the logical role a key plays. At most one key per purpose
// is active at a time; rotation retires the old key and activates a
// successor under a fresh alias.
type Purpose string

const (
	// PurposeChain signs audit chain links. Rotated every 90 days.
	PurposeChain Purpose = "audit_chain"
	// PurposeStorage wraps data-at-rest encryption. Rotated every 180 days.
	PurposeStorage Purpose = "storage"
)

var validPurposes = map[Purpose]bool{
	PurposeChain:   true,
	PurposeStorage: true,
}

// ParsePurpose validates a raw string against the known key purposes.
func ParsePurpose(raw string) (Purpose, error) {
	p := Purpose(raw)
	if !validPurposes[p] {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown key purpose %q", raw))
	}
	return p, nil
}

func (p Purpose) String() string { return string(p) }

// IsValid reports whether the purpose is known.
func (p Purpose) IsValid() bool { return validPurposes[p] }

// aliasPrefix is the stable part of generated aliases for this purpose.
func (p Purpose) aliasPrefix() string {
	switch p {
	case PurposeChain:
		return "audit-hmac"
	case PurposeStorage:
		return "storage-aes"
	default:
		return string(p)
	}
}

// Metadata describes one key generation. Key material itself never
// appears here; it stays in the keystore under Alias. Retired keys keep
// their metadata (IsActive=false) until expiry so historical chain
// segments and sealed blobs stay verifiable.
type Metadata struct {
	KeyID         string    `json:"key_id"`
	Alias         string    `json:"alias"`
	Purpose       Purpose   `json:"purpose"`
	KeyType       string    `json:"key_type"`
	KeySize       int       `json:"key_size"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	IsActive      bool      `json:"is_active"`
	RotationCount int       `json:"rotation_count"`
	AccessCount   int64     `json:"access_count"`
	VaultLocation string    `json:"vault_location"`
	Checksum      string    `json:"checksum"`
}

// RotationReason tags why a key was rotated, for audit metadata.
type RotationReason string

const (
	RotationScheduled   RotationReason = "scheduled"
	RotationAccessLimit RotationReason = "access_limit"
	RotationHazard      RotationReason = "hazard"
	RotationManual      RotationReason = "manual"
)

// RotationResult reports one completed rotation.
type RotationResult struct {
	Purpose   Purpose        `json:"purpose"`
	OldKeyID  string         `json:"old_key_id"`
	OldAlias  string         `json:"old_alias"`
	NewKeyID  string         `json:"new_key_id"`
	NewAlias  string         `json:"new_alias"`
	Reason    RotationReason `json:"reason"`
	RotatedAt time.Time      `json:"rotated_at"`
}
