package custody

import (
	"fmt"
	"time"

	dErrors "charak/pkg/domain-errors"
)

// KeyType names the asymmetric algorithm of a custodied clinic key.
type KeyType string

const (
	KeyTypeRSA   KeyType = "RSA"
	KeyTypeECDSA KeyType = "ECDSA"
)

var validKeyTypes = map[KeyType]bool{
	KeyTypeRSA:   true,
	KeyTypeECDSA: true,
}

// ParseKeyType validates a raw string against the supported algorithms.
func ParseKeyType(raw string) (KeyType, error) {
	kt := KeyType(raw)
	if !validKeyTypes[kt] {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown key type %q", raw))
	}
	return kt, nil
}

func (k KeyType) String() string { return string(k) }

// IsValid reports whether the key type is supported.
func (k KeyType) IsValid() bool { return validKeyTypes[k] }

// supportedSizes are the accepted key sizes per algorithm. ECDSA size is
// the curve size; only P-256 is provisioned.
var supportedSizes = map[KeyType]map[int]bool{
	KeyTypeRSA:   {2048: true, 4096: true},
	KeyTypeECDSA: {256: true},
}

// ValidateKeySpec rejects unsupported algorithm/size combinations before
// any material is generated.
func ValidateKeySpec(keyType KeyType, keySize int) error {
	if !keyType.IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown key type %q", keyType)
	}
	if !supportedSizes[keyType][keySize] {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unsupported %s key size %d", keyType, keySize)
	}
	return nil
}

// KeyMetadata describes one custodied clinic key. The private key itself
// lives sealed in the vault under KeyID; metadata never carries material.
// Retired keys keep their record (IsActive=false) so data encrypted to
// them stays recoverable.
type KeyMetadata struct {
	KeyID         string    `json:"key_id"`
	ClinicID      string    `json:"clinic_id"`
	KeyType       KeyType   `json:"key_type"`
	KeySize       int       `json:"key_size"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	IsActive      bool      `json:"is_active"`
	RotationCount int       `json:"rotation_count"`
	AccessCount   int64     `json:"access_count"`
	VaultLocation string    `json:"vault_location"`
	Checksum      string    `json:"checksum"`
}

// AccessOperation labels what a caller wanted a private key for.
type AccessOperation string

const (
	OpDecrypt AccessOperation = "decrypt"
	OpSign    AccessOperation = "sign"
	OpExport  AccessOperation = "export"
	OpRecover AccessOperation = "recover"
)

// AccessEntry is one line of the custody access trail. The trail is kept
// deliberately outside the hash chain so key-access history survives a
// corrupted main log.
type AccessEntry struct {
	Timestamp time.Time       `json:"ts"`
	KeyID     string          `json:"key_id"`
	ClinicID  string          `json:"clinic_id,omitempty"`
	Actor     string          `json:"actor"`
	Operation AccessOperation `json:"operation"`
	Reason    string          `json:"reason"`
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
}

// RotationResult reports one completed clinic key rotation, including
// where the outgoing key's metadata backup landed.
type RotationResult struct {
	ClinicID   string    `json:"clinic_id"`
	OldKeyID   string    `json:"old_key_id"`
	NewKeyID   string    `json:"new_key_id"`
	BackupPath string    `json:"backup_path"`
	Reason     string    `json:"reason"`
	RotatedAt  time.Time `json:"rotated_at"`
}

// RecoveryResult reports one recovery procedure. A clinic with no keys at
// all recovers trivially: RecoveredKeys and RegeneratedKeys both zero.
type RecoveryResult struct {
	ClinicID        string    `json:"clinic_id"`
	RecoveredKeys   int       `json:"recovered_keys"`
	RegeneratedKeys int       `json:"regenerated_keys"`
	Reason          string    `json:"reason"`
	CompletedAt     time.Time `json:"completed_at"`
}
