package hazard

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

// Baseline is the platform state captured when keys were provisioned.
// Later checks compare the live platform against it.
type Baseline struct {
	OSFingerprint       string    `json:"os_fingerprint"`
	BiometricGeneration int       `json:"biometric_generation"`
	CapturedAt          time.Time `json:"captured_at"`
}

// BaselineStore persists the hazard baseline.
type BaselineStore interface {
	Load(ctx context.Context) (Baseline, error)
	Save(ctx context.Context, baseline Baseline) error
}

// MemoryBaselineStore is an in-memory BaselineStore for tests.
type MemoryBaselineStore struct {
	mu       sync.RWMutex
	baseline *Baseline
}

func NewMemoryBaselineStore() *MemoryBaselineStore {
	return &MemoryBaselineStore{}
}

func (s *MemoryBaselineStore) Load(context.Context) (Baseline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.baseline == nil {
		return Baseline{}, sentinel.ErrNotFound
	}
	return *s.baseline, nil
}

func (s *MemoryBaselineStore) Save(_ context.Context, baseline Baseline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseline = &baseline
	return nil
}

// FileBaselineStore keeps the baseline in one JSON file, replaced
// atomically on save.
type FileBaselineStore struct {
	path string
	mu   sync.Mutex
}

func NewFileBaselineStore(dir string) *FileBaselineStore {
	return &FileBaselineStore{path: filepath.Join(dir, "hazard-baseline.json")}
}

func (s *FileBaselineStore) Load(context.Context) (Baseline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Baseline{}, sentinel.ErrNotFound
		}
		return Baseline{}, fmt.Errorf("baseline read: %w", err)
	}
	var b Baseline
	if err := json.Unmarshal(raw, &b); err != nil {
		return Baseline{}, fmt.Errorf("baseline decode: %w", sentinel.ErrCorrupted)
	}
	return b, nil
}

func (s *FileBaselineStore) Save(_ context.Context, baseline Baseline) error {
	raw, err := json.MarshalIndent(baseline, "", "  ")
	if err != nil {
		return fmt.Errorf("baseline encode: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("baseline mkdir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("baseline write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("baseline rename: %w", err)
	}
	return nil
}
