package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Clock is an injectable time source. Defaults to time.Now.
type Clock func() time.Time

// FileStore persists events as append-only JSON lines, one file per UTC
// day (audit-2006-01-02.jsonl). Appends are fsynced so a crash loses at
// most the line being written, and a torn final line is skipped by Replay
// as malformed rather than corrupting the whole log.
type FileStore struct {
	dir   string
	clock Clock

	mu sync.Mutex
}

// FileStoreOption configures a FileStore instance.
type FileStoreOption func(*FileStore)

// WithFileClock sets the clock used for segment naming.
func WithFileClock(clock Clock) FileStoreOption {
	return func(s *FileStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewFileStore constructs a file-backed Store rooted at dir. The
// directory is created on first append, not here, so constructing a
// store never touches disk.
func NewFileStore(dir string, opts ...FileStoreOption) *FileStore {
	s := &FileStore{
		dir:   dir,
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

const segmentPrefix = "audit-"

func (s *FileStore) segmentPath() string {
	day := s.clock().UTC().Format("2006-01-02")
	return filepath.Join(s.dir, segmentPrefix+day+".jsonl")
}

func (s *FileStore) Append(_ context.Context, event Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("audit mkdir: %w", err)
	}
	f, err := os.OpenFile(s.segmentPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("audit open: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit write: %w", err)
	}
	return f.Sync()
}

func (s *FileStore) ListByEncounter(ctx context.Context, encounterID string) ([]Event, error) {
	set, err := s.Replay(ctx)
	if err != nil {
		return nil, err
	}
	var out []Event
	for _, e := range set.Events {
		if e.EncounterID == encounterID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *FileStore) Replay(_ context.Context) (ReplaySet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	segments, err := s.segments()
	if err != nil {
		return ReplaySet{}, err
	}

	var set ReplaySet
	for _, path := range segments {
		if err := s.scanSegment(path, &set); err != nil {
			return ReplaySet{}, err
		}
	}
	return set, nil
}

// segments returns the segment file paths in date order. Lexicographic
// order matches chronological order for the fixed date layout.
func (s *FileStore) segments() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("audit readdir: %w", err)
	}
	var out []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, segmentPrefix) || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		out = append(out, filepath.Join(s.dir, name))
	}
	sort.Strings(out)
	return out, nil
}

func (s *FileStore) scanSegment(path string, set *ReplaySet) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("audit open segment: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			set.Malformed++
			continue
		}
		if e.EncounterID == "" || e.Event == "" {
			set.Malformed++
			continue
		}
		set.Events = append(set.Events, e)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("audit scan %s: %w", filepath.Base(path), err)
	}
	return nil
}
