package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// MarkerKind distinguishes the chain-boundary record types.
type MarkerKind string

const (
	// MarkerGenesis opens the first chain segment after an install or
	// reinstall.
	MarkerGenesis MarkerKind = "genesis"
	// MarkerRollover opens a new segment after a planned boundary,
	// typically key rotation.
	MarkerRollover MarkerKind = "rollover"
	// MarkerStitch documents a detected gap between segments without
	// repairing it.
	MarkerStitch MarkerKind = "stitch"
)

// ChainMarker is a chain-boundary record persisted alongside the audit
// log. Markers are created exactly once per triggering condition and are
// never mutated.
type ChainMarker struct {
	ID            string     `json:"id"`
	Kind          MarkerKind `json:"kind"`
	Timestamp     time.Time  `json:"ts"`
	KeyID         string     `json:"kid,omitempty"`
	TerminalHash  string     `json:"terminal_hash,omitempty"`
	PrevGenesisID string     `json:"prev_genesis_id,omitempty"`
	Reason        string     `json:"reason,omitempty"`
}

// MarkerStore persists chain-boundary markers in append order.
type MarkerStore interface {
	Append(ctx context.Context, marker ChainMarker) error
	List(ctx context.Context) ([]ChainMarker, error)
}

// MemoryMarkerStore is an in-memory MarkerStore for tests.
type MemoryMarkerStore struct {
	mu      sync.RWMutex
	markers []ChainMarker
}

func NewMemoryMarkerStore() *MemoryMarkerStore {
	return &MemoryMarkerStore{}
}

func (s *MemoryMarkerStore) Append(_ context.Context, marker ChainMarker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers = append(s.markers, marker)
	return nil
}

func (s *MemoryMarkerStore) List(_ context.Context) ([]ChainMarker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChainMarker, len(s.markers))
	copy(out, s.markers)
	return out, nil
}

// FileMarkerStore keeps markers in a single append-only JSON-lines file
// next to the audit segments.
type FileMarkerStore struct {
	path string
	mu   sync.Mutex
}

func NewFileMarkerStore(dir string) *FileMarkerStore {
	return &FileMarkerStore{path: filepath.Join(dir, "chain-markers.jsonl")}
}

func (s *FileMarkerStore) Append(_ context.Context, marker ChainMarker) error {
	line, err := json.Marshal(marker)
	if err != nil {
		return fmt.Errorf("marshal chain marker: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("marker mkdir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("marker open: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("marker write: %w", err)
	}
	return f.Sync()
}

func (s *FileMarkerStore) List(_ context.Context) ([]ChainMarker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("marker open: %w", err)
	}
	defer f.Close()

	var out []ChainMarker
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var m ChainMarker
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("marker scan: %w", err)
	}
	return out, nil
}
