package keys

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

const metaFileSuffix = ".json"

// FileMetadataStore keeps one JSON metadata file per key generation.
// Updates rewrite the whole file via temp-file rename, matching the
// write-once-or-replace pattern of the other artifact stores.
type FileMetadataStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileMetadataStore(dir string) *FileMetadataStore {
	return &FileMetadataStore{dir: dir}
}

func (s *FileMetadataStore) path(keyID string) string {
	return filepath.Join(s.dir, keyID+metaFileSuffix)
}

func (s *FileMetadataStore) Put(_ context.Context, meta Metadata) error {
	if meta.KeyID == "" {
		return fmt.Errorf("key metadata: empty key id")
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("key metadata encode: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("key metadata mkdir: %w", err)
	}
	tmp := s.path(meta.KeyID) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("key metadata write: %w", err)
	}
	if err := os.Rename(tmp, s.path(meta.KeyID)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("key metadata rename: %w", err)
	}
	return nil
}

func (s *FileMetadataStore) Get(_ context.Context, keyID string) (Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(keyID)
}

func (s *FileMetadataStore) GetByAlias(ctx context.Context, alias string) (Metadata, error) {
	all, err := s.List(ctx, "")
	if err != nil {
		return Metadata{}, err
	}
	for _, meta := range all {
		if meta.Alias == alias {
			return meta, nil
		}
	}
	return Metadata{}, sentinel.ErrNotFound
}

func (s *FileMetadataStore) Active(ctx context.Context, purpose Purpose) (Metadata, error) {
	all, err := s.List(ctx, purpose)
	if err != nil {
		return Metadata{}, err
	}
	for _, meta := range all {
		if meta.IsActive {
			return meta, nil
		}
	}
	return Metadata{}, sentinel.ErrNotFound
}

func (s *FileMetadataStore) List(_ context.Context, purpose Purpose) ([]Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("key metadata readdir: %w", err)
	}

	var out []Metadata
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, metaFileSuffix) {
			continue
		}
		meta, err := s.readLocked(strings.TrimSuffix(name, metaFileSuffix))
		if err != nil {
			// A half-written or foreign file must not hide the rest.
			continue
		}
		if purpose == "" || meta.Purpose == purpose {
			out = append(out, meta)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *FileMetadataStore) Delete(_ context.Context, keyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(keyID))
	if err != nil {
		if os.IsNotExist(err) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("key metadata delete: %w", err)
	}
	return nil
}

// readLocked loads one record. Caller holds s.mu.
func (s *FileMetadataStore) readLocked(keyID string) (Metadata, error) {
	raw, err := os.ReadFile(s.path(keyID))
	if err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, sentinel.ErrNotFound
		}
		return Metadata{}, fmt.Errorf("key metadata read: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, fmt.Errorf("key metadata decode %s: %w", keyID, sentinel.ErrCorrupted)
	}
	return meta, nil
}
