package custody

import "context"

// MetadataStore persists clinic key metadata, one record per key.
// Implementations return sentinel.ErrNotFound for missing records; the
// service translates at the domain boundary.
type MetadataStore interface {
	// Put upserts a record by KeyID.
	Put(ctx context.Context, meta KeyMetadata) error

	// Get returns the record for keyID.
	Get(ctx context.Context, keyID string) (KeyMetadata, error)

	// ActiveByClinic returns the single active record for a clinic.
	ActiveByClinic(ctx context.Context, clinicID string) (KeyMetadata, error)

	// ListByClinic returns every record for a clinic, retired included,
	// oldest first. An unknown clinic yields an empty slice.
	ListByClinic(ctx context.Context, clinicID string) ([]KeyMetadata, error)

	// Backup writes a timestamped copy of the record outside the live
	// store and returns where it landed. Rotation calls this before
	// deactivating the outgoing key so the step can be rolled back.
	Backup(ctx context.Context, meta KeyMetadata) (string, error)
}

// Vault stores sealed private key material by key id. Implementations
// must keep material encrypted at rest; callers only ever see plaintext
// DER in memory.
type Vault interface {
	// Store seals and persists PKCS#8 DER under keyID. Storing over an
	// existing key is a conflict.
	Store(ctx context.Context, keyID string, der []byte) error

	// Load unseals and returns the DER for keyID.
	Load(ctx context.Context, keyID string) ([]byte, error)

	// Contains reports whether keyID holds material.
	Contains(ctx context.Context, keyID string) (bool, error)

	// Delete removes the sealed material. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, keyID string) error
}
