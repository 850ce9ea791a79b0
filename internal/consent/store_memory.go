package consent

import (
	"context"
	"sort"
	"sync"

	"charak/pkg/sentinel"
)

// MemoryStore keeps consent records in process memory. Used in tests and
// as a cache-free default when no data directory is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Get(_ context.Context, encounterID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[encounterID]
	if !ok {
		return Record{}, sentinel.ErrNotFound
	}
	return record.Clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.EncounterID] = record.Clone()
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, record.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EncounterID < out[j].EncounterID })
	return out, nil
}

// Reset clears all records. Test helper.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]Record)
}
