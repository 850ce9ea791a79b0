package audit

import "context"

// ReplaySet is a full decode of the persisted log in append order.
// Malformed counts lines that failed to decode and were skipped, so
// verification can report them without aborting.
type ReplaySet struct {
	Events    []Event
	Malformed int
}

// Store persists chained audit events. Implementations must preserve
// append order; the chain verifier replays events in the order the store
// returns them.
type Store interface {
	// Append persists one event. It never rewrites existing records.
	Append(ctx context.Context, event Event) error

	// ListByEncounter returns the events of one encounter chain in
	// append order. A missing encounter yields an empty slice, not an
	// error.
	ListByEncounter(ctx context.Context, encounterID string) ([]Event, error)

	// Replay returns every decodable event in append order together
	// with the malformed-line count.
	Replay(ctx context.Context) (ReplaySet, error)
}
