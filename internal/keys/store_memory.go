package keys

import (
	"context"
	"sort"
	"sync"

	"charak/pkg/sentinel"
)

// MemoryMetadataStore is an in-memory MetadataStore for tests.
type MemoryMetadataStore struct {
	mu      sync.RWMutex
	records map[string]Metadata
}

func NewMemoryMetadataStore() *MemoryMetadataStore {
	return &MemoryMetadataStore{records: make(map[string]Metadata)}
}

func (s *MemoryMetadataStore) Put(_ context.Context, meta Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[meta.KeyID] = meta
	return nil
}

func (s *MemoryMetadataStore) Get(_ context.Context, keyID string) (Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.records[keyID]
	if !ok {
		return Metadata{}, sentinel.ErrNotFound
	}
	return meta, nil
}

func (s *MemoryMetadataStore) GetByAlias(_ context.Context, alias string) (Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, meta := range s.records {
		if meta.Alias == alias {
			return meta, nil
		}
	}
	return Metadata{}, sentinel.ErrNotFound
}

func (s *MemoryMetadataStore) Active(_ context.Context, purpose Purpose) (Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, meta := range s.records {
		if meta.Purpose == purpose && meta.IsActive {
			return meta, nil
		}
	}
	return Metadata{}, sentinel.ErrNotFound
}

func (s *MemoryMetadataStore) List(_ context.Context, purpose Purpose) ([]Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Metadata
	for _, meta := range s.records {
		if purpose == "" || meta.Purpose == purpose {
			out = append(out, meta)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryMetadataStore) Delete(_ context.Context, keyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[keyID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, keyID)
	return nil
}
