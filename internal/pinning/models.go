package pinning

import (
	"time"
)

// PinType names the digest algorithm of a pin. Only SPKI SHA-256 is
// produced; the field exists on the wire so a future algorithm change
// does not break stored metadata.
type PinType string

// PinTypeSHA256 is a SHA-256 digest over the certificate's
// SubjectPublicKeyInfo.
const PinTypeSHA256 PinType = "sha256"

// PinMetadata describes one stored certificate pin. Rotation retires the
// old pin (IsActive=false) but keeps it as the backup in the live pin
// set until the next rotation.
type PinMetadata struct {
	PinID         string    `json:"pin_id"`
	Hostname      string    `json:"hostname"`
	PinType       PinType   `json:"pin_type"`
	PinValue      string    `json:"pin_value"`
	IsActive      bool      `json:"is_active"`
	RotationCount int       `json:"rotation_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// RotationResult reports one completed pin rotation.
type RotationResult struct {
	Hostname  string    `json:"hostname"`
	OldPinID  string    `json:"old_pin_id"`
	OldPin    string    `json:"old_pin"`
	NewPinID  string    `json:"new_pin_id"`
	NewPin    string    `json:"new_pin"`
	Changed   bool      `json:"changed"`
	Reason    string    `json:"reason"`
	RotatedAt time.Time `json:"rotated_at"`
}

// TestResult is the outcome of a live break test against a hostname.
// Connection failures produce Success=false with the captured error; the
// break test never propagates a network failure to its caller.
type TestResult struct {
	Hostname   string        `json:"hostname"`
	Success    bool          `json:"success"`
	MatchedPin string        `json:"matched_pin,omitempty"`
	Error      string        `json:"error,omitempty"`
	Latency    time.Duration `json:"latency"`
	TestedAt   time.Time     `json:"tested_at"`
}

// PlaybookStep is one ordered step of a rotation playbook.
type PlaybookStep struct {
	Step        int    `json:"step"`
	Action      string `json:"action"`
	Description string `json:"description"`
}
