package consent

import (
	"time"

	"charak/internal/audit"
	dErrors "charak/pkg/domain-errors"
)

// Status is the consent state for a single encounter.
type Status string

const (
	// StatusNotSet is the initial state before the patient has decided.
	StatusNotSet Status = "NOT_SET"
	// StatusGiven means recording and processing are permitted.
	StatusGiven Status = "GIVEN"
	// StatusWithdrawn means the patient revoked consent; queued work for the
	// encounter must be torn down.
	StatusWithdrawn Status = "WITHDRAWN"
	// StatusExpired means consent lapsed by policy rather than by an explicit
	// patient decision. Treated like withdrawal for cleanup purposes.
	StatusExpired Status = "EXPIRED"
)

var validStatuses = map[Status]bool{
	StatusNotSet:    true,
	StatusGiven:     true,
	StatusWithdrawn: true,
	StatusExpired:   true,
}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !validStatuses[s] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown consent status: %s", raw)
	}
	return s, nil
}

func (s Status) IsValid() bool { return validStatuses[s] }

func (s Status) String() string { return string(s) }

// allowedTransitions encodes the state machine. GIVEN may be re-entered
// after WITHDRAWN or EXPIRED; everything else is terminal until re-consent.
var allowedTransitions = map[Status][]Status{
	StatusNotSet:    {StatusGiven},
	StatusGiven:     {StatusWithdrawn, StatusExpired},
	StatusWithdrawn: {StatusGiven},
	StatusExpired:   {StatusGiven},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition is one historical state change on an encounter's record.
type Transition struct {
	From   Status      `json:"from"`
	To     Status      `json:"to"`
	At     time.Time   `json:"at"`
	Actor  audit.Actor `json:"actor"`
	Reason string      `json:"reason,omitempty"`
}

// Record is the persisted consent state for one encounter, including the
// full transition history. Transitions go through Apply so the state
// machine and the history stay consistent.
type Record struct {
	EncounterID string            `json:"encounter_id"`
	Status      Status            `json:"status"`
	History     []Transition      `json:"history,omitempty"`
	Meta        map[string]string `json:"meta,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewRecord creates a fresh record in the NOT_SET state.
func NewRecord(encounterID string, now time.Time) Record {
	return Record{
		EncounterID: encounterID,
		Status:      StatusNotSet,
		UpdatedAt:   now,
	}
}

// Apply performs a state transition, appending to the history. Illegal
// transitions are rejected without mutating the record.
func (r *Record) Apply(to Status, at time.Time, actor audit.Actor, reason string) error {
	if !validStatuses[to] {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown consent status: %s", to)
	}
	if !CanTransition(r.Status, to) {
		return dErrors.Newf(dErrors.CodeConflict, "consent transition %s -> %s is not allowed", r.Status, to)
	}
	r.History = append(r.History, Transition{
		From:   r.Status,
		To:     to,
		At:     at,
		Actor:  actor,
		Reason: reason,
	})
	r.Status = to
	r.UpdatedAt = at
	return nil
}

// Clone returns a deep copy so stores can hand out records without
// sharing the history slice or meta map.
func (r Record) Clone() Record {
	out := r
	if r.History != nil {
		out.History = append([]Transition(nil), r.History...)
	}
	if r.Meta != nil {
		out.Meta = make(map[string]string, len(r.Meta))
		for k, v := range r.Meta {
			out.Meta[k] = v
		}
	}
	return out
}
