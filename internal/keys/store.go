package keys

import "context"

// MetadataStore persists key metadata, one record per key generation.
// Implementations return sentinel.ErrNotFound for missing records; the
// manager translates at the domain boundary.
type MetadataStore interface {
	// Put upserts a record by KeyID.
	Put(ctx context.Context, meta Metadata) error

	// Get returns the record for keyID.
	Get(ctx context.Context, keyID string) (Metadata, error)

	// GetByAlias returns the record stored under alias.
	GetByAlias(ctx context.Context, alias string) (Metadata, error)

	// Active returns the single active record for purpose.
	Active(ctx context.Context, purpose Purpose) (Metadata, error)

	// List returns every record for purpose, retired included, oldest
	// first. An empty purpose lists everything.
	List(ctx context.Context, purpose Purpose) ([]Metadata, error)

	// Delete removes a record permanently. Used only by retention
	// sweeps after expiry.
	Delete(ctx context.Context, keyID string) error
}
