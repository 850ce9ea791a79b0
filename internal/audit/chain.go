package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// GenesisSentinel is the prev_hash of the first event in a fresh chain
// segment. It is a fixed value, not a computed hash, so verifiers can
// recognize segment starts without any key material.
const GenesisSentinel = "0000000000000000000000000000000000000000000000000000000000000000"

// canonicalString flattens an event into the byte sequence the chain MAC
// is computed over. Field order is fixed and meta keys are sorted, so the
// same event always serializes identically regardless of map iteration
// order or JSON encoder settings.
//
// Layout: encounter_id|kid|prev_hash|event|ts|actor|k1=v1,k2=v2
func canonicalString(e Event) string {
	var sb strings.Builder
	sb.WriteString(e.EncounterID)
	sb.WriteByte('|')
	sb.WriteString(e.KeyID)
	sb.WriteByte('|')
	sb.WriteString(e.PrevHash)
	sb.WriteByte('|')
	sb.WriteString(string(e.Event))
	sb.WriteByte('|')
	sb.WriteString(e.Timestamp.UTC().Format(time.RFC3339Nano))
	sb.WriteByte('|')
	sb.WriteString(string(e.Actor))
	sb.WriteByte('|')
	if len(e.Meta) > 0 {
		keys := make([]string, 0, len(e.Meta))
		for k := range e.Meta {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(k)
			sb.WriteByte('=')
			sb.WriteString(e.Meta[k])
		}
	}
	return sb.String()
}

// ComputeLink returns the hex HMAC-SHA256 of the event under key. The
// result becomes the prev_hash of the next event in the same chain.
func ComputeLink(key []byte, e Event) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(canonicalString(e)))
	return hex.EncodeToString(mac.Sum(nil))
}

// EventHash returns the unkeyed hex SHA-256 of the event's canonical
// form. Unlike ComputeLink it needs no key material, so downstream
// consumers can use it as a stable dedupe identity.
func EventHash(e Event) string {
	sum := sha256.Sum256([]byte(canonicalString(e)))
	return hex.EncodeToString(sum[:])
}

// VerifyLink reports whether want is the chain MAC of e under key, using
// a constant-time comparison.
func VerifyLink(key []byte, e Event, want string) bool {
	got, err := hex.DecodeString(want)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(canonicalString(e)))
	return hmac.Equal(mac.Sum(nil), got)
}
