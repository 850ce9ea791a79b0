package audit

import (
	"fmt"
	"time"

	dErrors "charak/pkg/domain-errors"
)

// SystemEncounterID scopes device-level events (key rotations, hazard
// recoveries, purge bookkeeping) that belong to no clinical encounter.
// They form an ordinary chain under this reserved id.
const SystemEncounterID = "system"

// EventType classifies an audit event. The wire values are part of the
// on-disk compatibility surface and must not change between releases.
type EventType string

const (
	EventConsentOn      EventType = "CONSENT_ON"
	EventConsentOff     EventType = "CONSENT_OFF"
	EventExport         EventType = "EXPORT"
	EventError          EventType = "ERROR"
	EventPurgeBuffer    EventType = "PURGE_BUFFER"
	EventPurge30s       EventType = "PURGE_30S"
	EventSessionEnd     EventType = "SESSION_END"
	EventAbandonPurge   EventType = "ABANDON_PURGE"
	EventForcePurge     EventType = "FORCE_PURGE"
	EventPolicyToggle   EventType = "POLICY_TOGGLE"
	EventCancelledCount EventType = "CANCELLED_COUNT"
	EventKeyRotation    EventType = "KEY_ROTATION"
	EventHazardRecovery EventType = "HAZARD_RECOVERY"
	EventAccessDenied   EventType = "ACCESS_DENIED"
	EventRetentionPurge EventType = "RETENTION_PURGE"
)

var validEventTypes = map[EventType]bool{
	EventConsentOn:      true,
	EventConsentOff:     true,
	EventExport:         true,
	EventError:          true,
	EventPurgeBuffer:    true,
	EventPurge30s:       true,
	EventSessionEnd:     true,
	EventAbandonPurge:   true,
	EventForcePurge:     true,
	EventPolicyToggle:   true,
	EventCancelledCount: true,
	EventKeyRotation:    true,
	EventHazardRecovery: true,
	EventAccessDenied:   true,
	EventRetentionPurge: true,
}

// ParseEventType validates a raw string against the known event types.
func ParseEventType(raw string) (EventType, error) {
	et := EventType(raw)
	if !validEventTypes[et] {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown event type %q", raw))
	}
	return et, nil
}

func (e EventType) String() string { return string(e) }

// IsValid reports whether the event type is one of the known wire values.
func (e EventType) IsValid() bool { return validEventTypes[e] }

// Actor identifies who triggered an audited action.
type Actor string

const (
	ActorApp    Actor = "APP"
	ActorDoctor Actor = "DOCTOR"
	ActorAdmin  Actor = "ADMIN"
)

var validActors = map[Actor]bool{
	ActorApp:    true,
	ActorDoctor: true,
	ActorAdmin:  true,
}

// ParseActor validates a raw string against the known actors.
func ParseActor(raw string) (Actor, error) {
	a := Actor(raw)
	if !validActors[a] {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown actor %q", raw))
	}
	return a, nil
}

func (a Actor) String() string { return string(a) }

// IsValid reports whether the actor is one of the known wire values.
func (a Actor) IsValid() bool { return validActors[a] }

// Event is one link in a per-encounter hash chain. PrevHash carries the
// HMAC of the immediately preceding event in the same encounter chain, or
// GenesisSentinel for the first event after install. Events are immutable
// once written; an event never stores its own MAC, the successor does.
//
// The JSON field names are a compatibility surface shared with the export
// pipeline and offline verifiers. Do not rename them.
type Event struct {
	EncounterID string            `json:"encounter_id"`
	KeyID       string            `json:"kid"`
	PrevHash    string            `json:"prev_hash"`
	Event       EventType         `json:"event"`
	Timestamp   time.Time         `json:"ts"`
	Actor       Actor             `json:"actor"`
	Meta        map[string]string `json:"meta,omitempty"`
}

// Validate checks the structural invariants of an event before it is
// chained. It does not verify the hash linkage.
func (e Event) Validate() error {
	if e.EncounterID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "encounter id is required")
	}
	if !e.Event.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown event type %q", e.Event))
	}
	if !e.Actor.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown actor %q", e.Actor))
	}
	if e.Timestamp.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "timestamp is required")
	}
	if e.KeyID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "key id is required")
	}
	if e.PrevHash == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "prev hash is required")
	}
	return nil
}

// ChainBreak records one verification mismatch: the position of the event
// whose prev_hash did not line up, and what was expected there.
type ChainBreak struct {
	EncounterID string `json:"encounter_id"`
	Index       int    `json:"index"`
	Expected    string `json:"expected"`
	Got         string `json:"got"`
	Reason      string `json:"reason"`
}

// VerificationResult is the outcome of replaying a chain. ValidEvents
// counts events whose linkage verified; MalformedLines counts persisted
// lines that could not be decoded and were skipped.
type VerificationResult struct {
	IsValid        bool         `json:"is_valid"`
	ValidEvents    int          `json:"valid_events"`
	ChainBreaks    int          `json:"chain_breaks"`
	MalformedLines int          `json:"malformed_lines"`
	Breaks         []ChainBreak `json:"breaks,omitempty"`
}

// ChainGap is a rollover marker that references a genesis id nothing in
// the marker history knows about, usually evidence of a lost segment.
type ChainGap struct {
	RolloverID    string    `json:"rollover_id"`
	PrevGenesisID string    `json:"prev_genesis_id"`
	Timestamp     time.Time `json:"ts"`
}

// GapAnalysis reports chain-boundary gaps with remediation hints. Gaps
// are diagnostics, not verification failures.
type GapAnalysis struct {
	Gaps            []ChainGap `json:"gaps"`
	Recommendations []string   `json:"recommendations,omitempty"`
}

// DuplicateEvent is a (encounter_id, ts, event, prev_hash) tuple seen more
// than once in the replayed log.
type DuplicateEvent struct {
	EncounterID string    `json:"encounter_id"`
	Event       EventType `json:"event"`
	Timestamp   time.Time `json:"ts"`
	Count       int       `json:"count"`
}

// DuplicateAnalysis reports repeated events. Duplicates do not break the
// hash chain but usually indicate a replayed writer.
type DuplicateAnalysis struct {
	Duplicates      []DuplicateEvent `json:"duplicates"`
	Recommendations []string         `json:"recommendations,omitempty"`
}

// OrderViolation is a timestamp regression inside a single chain segment.
type OrderViolation struct {
	EncounterID string    `json:"encounter_id"`
	Index       int       `json:"index"`
	Previous    time.Time `json:"previous"`
	Current     time.Time `json:"current"`
}

// OrderAnalysis reports timestamp regressions within chain segments.
type OrderAnalysis struct {
	Violations      []OrderViolation `json:"violations"`
	Recommendations []string         `json:"recommendations,omitempty"`
}
