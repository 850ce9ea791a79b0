package keys

import "context"

// Keystore abstracts the platform secret store holding raw key material.
// Implementations must treat aliases as immutable once generated: rotation
// creates a new alias, never overwrites an existing one.
type Keystore interface {
	// Generate creates size bytes of fresh key material under alias.
	// Generating over an existing alias is a conflict.
	Generate(ctx context.Context, alias string, size int) error

	// Key returns the raw material stored under alias.
	Key(ctx context.Context, alias string) ([]byte, error)

	// Delete removes the alias and its material. Deleting a missing
	// alias is not an error; purge paths retry.
	Delete(ctx context.Context, alias string) error

	// Contains reports whether the alias holds material.
	Contains(ctx context.Context, alias string) (bool, error)

	// Aliases lists every stored alias.
	Aliases(ctx context.Context) ([]string, error)
}
