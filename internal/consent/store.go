package consent

import "context"

// Store persists consent records keyed by encounter ID.
//
// Implementations return sentinel.ErrNotFound from Get when no record
// exists for the encounter; the service treats that as NOT_SET.
type Store interface {
	// Get returns the record for an encounter.
	Get(ctx context.Context, encounterID string) (Record, error)

	// Put upserts a record.
	Put(ctx context.Context, record Record) error

	// List returns all records, ordered by encounter ID.
	List(ctx context.Context) ([]Record, error)
}
