package pinning

import "context"

// Store persists pin metadata, one record per pin. Implementations
// return sentinel.ErrNotFound for missing records.
type Store interface {
	// Put upserts a record by PinID.
	Put(ctx context.Context, meta PinMetadata) error

	// Get returns the record for pinID.
	Get(ctx context.Context, pinID string) (PinMetadata, error)

	// ActiveByHost returns the single active pin for a hostname.
	ActiveByHost(ctx context.Context, hostname string) (PinMetadata, error)

	// ListByHost returns every pin for a hostname, retired included,
	// oldest first. An empty hostname lists everything.
	ListByHost(ctx context.Context, hostname string) ([]PinMetadata, error)
}
