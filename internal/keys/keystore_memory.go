package keys

import (
	"context"
	"crypto/rand"
	"sync"

	"charak/pkg/sentinel"
)

// MemoryKeystore keeps key material in process memory. Used by tests and
// by the hazard suite to simulate keystore loss.
type MemoryKeystore struct {
	mu   sync.RWMutex
	keys map[string][]byte
}

func NewMemoryKeystore() *MemoryKeystore {
	return &MemoryKeystore{keys: make(map[string][]byte)}
}

func (s *MemoryKeystore) Generate(_ context.Context, alias string, size int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[alias]; ok {
		return sentinel.ErrConflict
	}
	material := make([]byte, size)
	if _, err := rand.Read(material); err != nil {
		return err
	}
	s.keys[alias] = material
	return nil
}

func (s *MemoryKeystore) Key(_ context.Context, alias string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	material, ok := s.keys[alias]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := make([]byte, len(material))
	copy(out, material)
	return out, nil
}

func (s *MemoryKeystore) Delete(_ context.Context, alias string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, alias)
	return nil
}

func (s *MemoryKeystore) Contains(_ context.Context, alias string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[alias]
	return ok, nil
}

func (s *MemoryKeystore) Aliases(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.keys))
	for alias := range s.keys {
		out = append(out, alias)
	}
	return out, nil
}

// Clear wipes every alias, simulating a platform keystore reset.
func (s *MemoryKeystore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = make(map[string][]byte)
}
