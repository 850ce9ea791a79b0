package consent

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

const recordFileSuffix = ".json"

// FileStore keeps one JSON record per encounter. Updates rewrite the
// whole file via temp-file rename so a crash mid-write never leaves a
// torn record behind.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(encounterID string) string {
	return filepath.Join(s.dir, encounterID+recordFileSuffix)
}

func (s *FileStore) Get(_ context.Context, encounterID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(encounterID)
}

func (s *FileStore) Put(_ context.Context, record Record) error {
	if record.EncounterID == "" {
		return fmt.Errorf("consent record: empty encounter id")
	}
	if strings.ContainsAny(record.EncounterID, `/\`) {
		return fmt.Errorf("consent record: encounter id %q is not a valid file name", record.EncounterID)
	}
	raw, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("consent record encode: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("consent record mkdir: %w", err)
	}
	tmp := s.path(record.EncounterID) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("consent record write: %w", err)
	}
	if err := os.Rename(tmp, s.path(record.EncounterID)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("consent record rename: %w", err)
	}
	return nil
}

func (s *FileStore) List(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("consent record readdir: %w", err)
	}

	var out []Record
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, recordFileSuffix) {
			continue
		}
		record, err := s.readLocked(strings.TrimSuffix(name, recordFileSuffix))
		if err != nil {
			// A half-written or foreign file must not hide the rest.
			continue
		}
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EncounterID < out[j].EncounterID })
	return out, nil
}

// readLocked loads one record. Caller holds s.mu.
func (s *FileStore) readLocked(encounterID string) (Record, error) {
	raw, err := os.ReadFile(s.path(encounterID))
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, sentinel.ErrNotFound
		}
		return Record{}, fmt.Errorf("consent record read: %w", err)
	}
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return Record{}, fmt.Errorf("consent record decode %s: %w", encounterID, sentinel.ErrCorrupted)
	}
	return record, nil
}
