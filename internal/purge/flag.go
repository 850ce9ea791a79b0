// Package purge guarantees that in-memory-only transcript buffers are
// wiped on clean session end and that crashed sessions are detected and
// cleaned up at next start. The buffer never touches disk; the only
// durable artifact is a small pending-purge flag written before any
// audio is buffered, so a crash can always be told apart from a clean
// exit.
package purge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"charak/pkg/sentinel"
)

// PendingFlag is the durable crash-detection record. It exists exactly
// while a session is ACTIVE: written before buffering starts, removed on
// clean end. Finding one at process start means the previous process
// died mid-session.
type PendingFlag struct {
	SessionID   string    `json:"session_id"`
	EncounterID string    `json:"encounter_id"`
	StartedAt   time.Time `json:"started_at"`
}

// FlagStore persists the pending-purge flag outside process memory.
type FlagStore interface {
	// Set durably writes the flag. Must not return before the record
	// is on stable storage; the crash-detection guarantee depends on it.
	Set(ctx context.Context, flag PendingFlag) error

	// Get returns the current flag, or sentinel.ErrNotFound when none
	// is set.
	Get(ctx context.Context) (PendingFlag, error)

	// Clear removes the flag. Clearing an absent flag is not an error.
	Clear(ctx context.Context) error
}

// FileFlagStore keeps the flag as a single JSON file written via
// temp-file rename with fsync on file and directory.
type FileFlagStore struct {
	path string
	mu   sync.Mutex
}

func NewFileFlagStore(dir string) *FileFlagStore {
	return &FileFlagStore{path: filepath.Join(dir, "pending-purge.json")}
}

func (s *FileFlagStore) Set(_ context.Context, flag PendingFlag) error {
	raw, err := json.Marshal(flag)
	if err != nil {
		return fmt.Errorf("purge flag encode: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("purge flag mkdir: %w", err)
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("purge flag open: %w", err)
	}
	if _, err := f.Write(raw); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("purge flag write: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("purge flag sync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("purge flag close: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("purge flag rename: %w", err)
	}

	// Fsync the directory so the rename itself survives power loss.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

func (s *FileFlagStore) Get(_ context.Context) (PendingFlag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return PendingFlag{}, sentinel.ErrNotFound
		}
		return PendingFlag{}, fmt.Errorf("purge flag read: %w", err)
	}
	var flag PendingFlag
	if err := json.Unmarshal(raw, &flag); err != nil {
		return PendingFlag{}, fmt.Errorf("purge flag decode: %w", sentinel.ErrCorrupted)
	}
	return flag, nil
}

func (s *FileFlagStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("purge flag clear: %w", err)
	}
	return nil
}

// MemoryFlagStore is an in-memory FlagStore for tests.
type MemoryFlagStore struct {
	mu   sync.Mutex
	flag *PendingFlag
}

func NewMemoryFlagStore() *MemoryFlagStore {
	return &MemoryFlagStore{}
}

func (s *MemoryFlagStore) Set(_ context.Context, flag PendingFlag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flag = &flag
	return nil
}

func (s *MemoryFlagStore) Get(_ context.Context) (PendingFlag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flag == nil {
		return PendingFlag{}, sentinel.ErrNotFound
	}
	return *s.flag, nil
}

func (s *MemoryFlagStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flag = nil
	return nil
}
