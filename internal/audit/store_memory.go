package audit

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests and single-process tooling.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) ListByEncounter(_ context.Context, encounterID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.EncounterID == encounterID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) Replay(_ context.Context) (ReplaySet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return ReplaySet{Events: out}, nil
}

// Reset clears all stored events. Test helper.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
