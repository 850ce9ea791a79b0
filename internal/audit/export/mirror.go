package export

import (
	"context"

	"charak/internal/audit"
)

// MirrorStore decorates an audit store so every persisted event is also
// handed to the export worker. The local append is the source of truth;
// export submission happens only after the write succeeds and can never
// fail the audit path.
type MirrorStore struct {
	next   audit.Store
	worker *Worker
}

// NewMirrorStore wraps next so successful appends are mirrored into the
// worker's pipeline.
func NewMirrorStore(next audit.Store, worker *Worker) *MirrorStore {
	return &MirrorStore{next: next, worker: worker}
}

func (s *MirrorStore) Append(ctx context.Context, event audit.Event) error {
	if err := s.next.Append(ctx, event); err != nil {
		return err
	}
	s.worker.Submit(event)
	return nil
}

func (s *MirrorStore) ListByEncounter(ctx context.Context, encounterID string) ([]audit.Event, error) {
	return s.next.ListByEncounter(ctx, encounterID)
}

func (s *MirrorStore) Replay(ctx context.Context) (audit.ReplaySet, error) {
	return s.next.Replay(ctx)
}
