package archive

import (
	"context"

	"charak/internal/audit"
)

// Publisher adapts the archive store to the export pipeline so a daemon
// with a direct database connection can materialize events without going
// through a broker. Inserts are idempotent, which is what makes the
// at-least-once pipeline safe to point here.
type Publisher struct {
	store *Store
}

// NewPublisher wraps the store for use as an export sink.
func NewPublisher(store *Store) *Publisher {
	return &Publisher{store: store}
}

// Publish archives the batch, keyed by each event's canonical hash.
func (p *Publisher) Publish(ctx context.Context, events []audit.Event) error {
	for _, e := range events {
		if err := p.store.Archive(ctx, audit.EventHash(e), e); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; the caller owns the database handle.
func (p *Publisher) Close() {}
