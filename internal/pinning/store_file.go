package pinning

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"charak/pkg/sentinel"
)

const pinFileSuffix = ".json"

// FileStore keeps one JSON metadata file per pin, written via temp-file
// rename like the other artifact stores.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(pinID string) string {
	return filepath.Join(s.dir, pinID+pinFileSuffix)
}

func (s *FileStore) Put(_ context.Context, meta PinMetadata) error {
	if meta.PinID == "" {
		return fmt.Errorf("pin metadata: empty pin id")
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("pin metadata encode: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("pin metadata mkdir: %w", err)
	}
	tmp := s.path(meta.PinID) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("pin metadata write: %w", err)
	}
	if err := os.Rename(tmp, s.path(meta.PinID)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("pin metadata rename: %w", err)
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, pinID string) (PinMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(pinID)
}

func (s *FileStore) ActiveByHost(ctx context.Context, hostname string) (PinMetadata, error) {
	all, err := s.ListByHost(ctx, hostname)
	if err != nil {
		return PinMetadata{}, err
	}
	for _, meta := range all {
		if meta.IsActive {
			return meta, nil
		}
	}
	return PinMetadata{}, sentinel.ErrNotFound
}

func (s *FileStore) ListByHost(_ context.Context, hostname string) ([]PinMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("pin metadata readdir: %w", err)
	}

	var out []PinMetadata
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, pinFileSuffix) {
			continue
		}
		meta, err := s.readLocked(strings.TrimSuffix(name, pinFileSuffix))
		if err != nil {
			continue
		}
		if hostname == "" || meta.Hostname == hostname {
			out = append(out, meta)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// readLocked loads one record. Caller holds s.mu.
func (s *FileStore) readLocked(pinID string) (PinMetadata, error) {
	raw, err := os.ReadFile(s.path(pinID))
	if err != nil {
		if os.IsNotExist(err) {
			return PinMetadata{}, sentinel.ErrNotFound
		}
		return PinMetadata{}, fmt.Errorf("pin metadata read: %w", err)
	}
	var meta PinMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return PinMetadata{}, fmt.Errorf("pin metadata decode %s: %w", pinID, sentinel.ErrCorrupted)
	}
	return meta, nil
}

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]PinMetadata
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]PinMetadata)}
}

func (s *MemoryStore) Put(_ context.Context, meta PinMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[meta.PinID] = meta
	return nil
}

func (s *MemoryStore) Get(_ context.Context, pinID string) (PinMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.records[pinID]
	if !ok {
		return PinMetadata{}, sentinel.ErrNotFound
	}
	return meta, nil
}

func (s *MemoryStore) ActiveByHost(_ context.Context, hostname string) (PinMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, meta := range s.records {
		if meta.Hostname == hostname && meta.IsActive {
			return meta, nil
		}
	}
	return PinMetadata{}, sentinel.ErrNotFound
}

func (s *MemoryStore) ListByHost(_ context.Context, hostname string) ([]PinMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []PinMetadata
	for _, meta := range s.records {
		if hostname == "" || meta.Hostname == hostname {
			out = append(out, meta)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
