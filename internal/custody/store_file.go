package custody

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"charak/pkg/sentinel"
)

const custodyMetaSuffix = ".json"

// FileMetadataStore keeps one JSON metadata file per clinic key, with
// timestamped backups in a sibling directory. Updates go through
// temp-file rename like every other artifact store.
type FileMetadataStore struct {
	dir       string
	backupDir string
	clock     func() time.Time
	mu        sync.Mutex
}

func NewFileMetadataStore(dir string) *FileMetadataStore {
	return &FileMetadataStore{
		dir:       dir,
		backupDir: filepath.Join(dir, "backups"),
		clock:     time.Now,
	}
}

func (s *FileMetadataStore) path(keyID string) string {
	return filepath.Join(s.dir, keyID+custodyMetaSuffix)
}

func (s *FileMetadataStore) Put(_ context.Context, meta KeyMetadata) error {
	if meta.KeyID == "" {
		return fmt.Errorf("clinic key metadata: empty key id")
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("clinic key metadata encode: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("clinic key metadata mkdir: %w", err)
	}
	tmp := s.path(meta.KeyID) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("clinic key metadata write: %w", err)
	}
	if err := os.Rename(tmp, s.path(meta.KeyID)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("clinic key metadata rename: %w", err)
	}
	return nil
}

func (s *FileMetadataStore) Get(_ context.Context, keyID string) (KeyMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(keyID)
}

func (s *FileMetadataStore) ActiveByClinic(ctx context.Context, clinicID string) (KeyMetadata, error) {
	all, err := s.ListByClinic(ctx, clinicID)
	if err != nil {
		return KeyMetadata{}, err
	}
	for _, meta := range all {
		if meta.IsActive {
			return meta, nil
		}
	}
	return KeyMetadata{}, sentinel.ErrNotFound
}

func (s *FileMetadataStore) ListByClinic(_ context.Context, clinicID string) ([]KeyMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("clinic key metadata readdir: %w", err)
	}

	var out []KeyMetadata
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, custodyMetaSuffix) {
			continue
		}
		meta, err := s.readLocked(strings.TrimSuffix(name, custodyMetaSuffix))
		if err != nil {
			continue
		}
		if clinicID == "" || meta.ClinicID == clinicID {
			out = append(out, meta)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Backup writes a timestamped copy of the record under backups/. The live
// record is untouched; rotation rollback restores from the returned path.
func (s *FileMetadataStore) Backup(_ context.Context, meta KeyMetadata) (string, error) {
	if meta.KeyID == "" {
		return "", fmt.Errorf("clinic key metadata: empty key id")
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("clinic key backup encode: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.backupDir, 0o700); err != nil {
		return "", fmt.Errorf("clinic key backup mkdir: %w", err)
	}
	stamp := s.clock().UTC().Format("20060102T150405.000000000")
	path := filepath.Join(s.backupDir, fmt.Sprintf("%s_%s.json", meta.KeyID, stamp))
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return "", fmt.Errorf("clinic key backup write: %w", err)
	}
	return path, nil
}

// readLocked loads one record. Caller holds s.mu.
func (s *FileMetadataStore) readLocked(keyID string) (KeyMetadata, error) {
	raw, err := os.ReadFile(s.path(keyID))
	if err != nil {
		if os.IsNotExist(err) {
			return KeyMetadata{}, sentinel.ErrNotFound
		}
		return KeyMetadata{}, fmt.Errorf("clinic key metadata read: %w", err)
	}
	var meta KeyMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return KeyMetadata{}, fmt.Errorf("clinic key metadata decode %s: %w", keyID, sentinel.ErrCorrupted)
	}
	return meta, nil
}
