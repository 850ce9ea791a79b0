package cascade

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Spool stages payload files (rendered documents, export bundles,
// telemetry batches) awaiting upload. Files are named by encounter so
// withdrawal can wipe everything an encounter produced.
type Spool interface {
	// Write stages a payload and returns its path.
	Write(ctx context.Context, encounterID, name string, payload []byte) (string, error)

	// WipeEncounter removes every staged file for an encounter and
	// returns how many were deleted.
	WipeEncounter(ctx context.Context, encounterID string) (int, error)
}

// FileSpool stores staged payloads as <encounter-id>_<name> under a
// single directory.
type FileSpool struct {
	dir string
}

func NewFileSpool(dir string) *FileSpool {
	return &FileSpool{dir: dir}
}

func (s *FileSpool) Write(_ context.Context, encounterID, name string, payload []byte) (string, error) {
	if encounterID == "" || name == "" {
		return "", fmt.Errorf("spool: encounter id and name are required")
	}
	if strings.ContainsAny(encounterID+name, `/\`) {
		return "", fmt.Errorf("spool: encounter id and name must be plain file name parts")
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return "", fmt.Errorf("spool mkdir: %w", err)
	}

	path := filepath.Join(s.dir, encounterID+"_"+name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return "", fmt.Errorf("spool write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("spool rename: %w", err)
	}
	return path, nil
}

func (s *FileSpool) WipeEncounter(_ context.Context, encounterID string) (int, error) {
	if encounterID == "" {
		return 0, fmt.Errorf("spool: encounter id is required")
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("spool readdir: %w", err)
	}

	wiped := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), encounterID+"_") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			return wiped, fmt.Errorf("spool remove %s: %w", entry.Name(), err)
		}
		wiped++
	}
	return wiped, nil
}
