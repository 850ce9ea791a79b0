package custody

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"charak/pkg/sentinel"
)

// MemoryMetadataStore is an in-memory MetadataStore for tests.
type MemoryMetadataStore struct {
	mu      sync.RWMutex
	records map[string]KeyMetadata
	backups []KeyMetadata
}

func NewMemoryMetadataStore() *MemoryMetadataStore {
	return &MemoryMetadataStore{records: make(map[string]KeyMetadata)}
}

func (s *MemoryMetadataStore) Put(_ context.Context, meta KeyMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[meta.KeyID] = meta
	return nil
}

func (s *MemoryMetadataStore) Get(_ context.Context, keyID string) (KeyMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.records[keyID]
	if !ok {
		return KeyMetadata{}, sentinel.ErrNotFound
	}
	return meta, nil
}

func (s *MemoryMetadataStore) ActiveByClinic(_ context.Context, clinicID string) (KeyMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, meta := range s.records {
		if meta.ClinicID == clinicID && meta.IsActive {
			return meta, nil
		}
	}
	return KeyMetadata{}, sentinel.ErrNotFound
}

func (s *MemoryMetadataStore) ListByClinic(_ context.Context, clinicID string) ([]KeyMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []KeyMetadata
	for _, meta := range s.records {
		if clinicID == "" || meta.ClinicID == clinicID {
			out = append(out, meta)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryMetadataStore) Backup(_ context.Context, meta KeyMetadata) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backups = append(s.backups, meta)
	return fmt.Sprintf("memory://backups/%s_%d", meta.KeyID, time.Now().UnixNano()), nil
}

// Backups returns the recorded backups for assertions.
func (s *MemoryMetadataStore) Backups() []KeyMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]KeyMetadata, len(s.backups))
	copy(out, s.backups)
	return out
}

// MemoryVault is an in-memory Vault for tests. Material is stored
// unsealed; tests needing at-rest sealing use FileVault.
type MemoryVault struct {
	mu   sync.RWMutex
	keys map[string][]byte
}

func NewMemoryVault() *MemoryVault {
	return &MemoryVault{keys: make(map[string][]byte)}
}

func (v *MemoryVault) Store(_ context.Context, keyID string, der []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.keys[keyID]; ok {
		return sentinel.ErrConflict
	}
	cp := make([]byte, len(der))
	copy(cp, der)
	v.keys[keyID] = cp
	return nil
}

func (v *MemoryVault) Load(_ context.Context, keyID string) ([]byte, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	der, ok := v.keys[keyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := make([]byte, len(der))
	copy(cp, der)
	return cp, nil
}

func (v *MemoryVault) Contains(_ context.Context, keyID string) (bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.keys[keyID]
	return ok, nil
}

func (v *MemoryVault) Delete(_ context.Context, keyID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.keys, keyID)
	return nil
}

// Drop removes material without going through Delete, simulating vault
// loss for recovery tests.
func (v *MemoryVault) Drop(keyID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.keys, keyID)
}
