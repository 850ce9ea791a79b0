package custody

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// AccessTrail records every attempt to use a custodied private key,
// successes and failures alike. It is append-only JSONL and deliberately
// not hash-chained: the access history must stay readable even when the
// main chain is corrupted.
type AccessTrail interface {
	// Record appends one entry. Failures to record are the caller's to
	// surface; the key operation itself already happened.
	Record(ctx context.Context, entry AccessEntry) error

	// List returns entries for one key id in append order, or all
	// entries for an empty key id.
	List(ctx context.Context, keyID string) ([]AccessEntry, error)
}

// FileAccessTrail appends entries to a single JSONL file with fsync, so
// a crash right after a key access still leaves the access on disk.
type FileAccessTrail struct {
	path string
	mu   sync.Mutex
}

func NewFileAccessTrail(dir string) *FileAccessTrail {
	return &FileAccessTrail{path: filepath.Join(dir, "access-trail.jsonl")}
}

func (t *FileAccessTrail) Record(_ context.Context, entry AccessEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("access trail encode: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(t.path), 0o700); err != nil {
		return fmt.Errorf("access trail mkdir: %w", err)
	}
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("access trail open: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("access trail write: %w", err)
	}
	return f.Sync()
}

func (t *FileAccessTrail) List(_ context.Context, keyID string) ([]AccessEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("access trail open: %w", err)
	}
	defer f.Close()

	var out []AccessEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry AccessEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			// Malformed lines are skipped; the trail is diagnostics, a
			// bad line must not hide the entries after it.
			continue
		}
		if keyID == "" || entry.KeyID == keyID {
			out = append(out, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("access trail scan: %w", err)
	}
	return out, nil
}

// MemoryAccessTrail is an in-memory AccessTrail for tests.
type MemoryAccessTrail struct {
	mu      sync.RWMutex
	entries []AccessEntry
}

func NewMemoryAccessTrail() *MemoryAccessTrail {
	return &MemoryAccessTrail{}
}

func (t *MemoryAccessTrail) Record(_ context.Context, entry AccessEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry)
	return nil
}

func (t *MemoryAccessTrail) List(_ context.Context, keyID string) ([]AccessEntry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []AccessEntry
	for _, entry := range t.entries {
		if keyID == "" || entry.KeyID == keyID {
			out = append(out, entry)
		}
	}
	return out, nil
}
