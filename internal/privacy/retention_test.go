package privacy

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"charak/internal/audit"
)

type sweepEvent struct {
	EncounterID string
	Event       audit.EventType
	Meta        map[string]string
}

type sweepRecorder struct {
	mu     sync.Mutex
	events []sweepEvent
}

func (r *sweepRecorder) Log(_ context.Context, encounterID string, event audit.EventType, _ audit.Actor, meta map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sweepEvent{EncounterID: encounterID, Event: event, Meta: meta})
	return nil
}

type SweeperSuite struct {
	suite.Suite
	segmentDir string
	spoolDir   string
	recorder   *sweepRecorder
	now        time.Time
	ctx        context.Context
}

func TestSweeperSuite(t *testing.T) {
	suite.Run(t, new(SweeperSuite))
}

func (s *SweeperSuite) SetupTest() {
	s.segmentDir = s.T().TempDir()
	s.spoolDir = s.T().TempDir()
	s.recorder = &sweepRecorder{}
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = context.Background()
}

func (s *SweeperSuite) newSweeper() *Sweeper {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSweeper(s.segmentDir, s.spoolDir, s.recorder, log,
		WithSweeperClock(func() time.Time { return s.now }))
}

func (s *SweeperSuite) writeSegment(day string) {
	path := filepath.Join(s.segmentDir, "audit-"+day+".jsonl")
	s.Require().NoError(os.WriteFile(path, []byte("{}\n"), 0o600))
}

func (s *SweeperSuite) writeSpool(name string, age time.Duration) {
	path := filepath.Join(s.spoolDir, name)
	s.Require().NoError(os.WriteFile(path, []byte("payload"), 0o600))
	stamp := s.now.Add(-age)
	s.Require().NoError(os.Chtimes(path, stamp, stamp))
}

func (s *SweeperSuite) TestExpiredSegmentsRemoved() {
	s.writeSegment("2025-01-15") // far past the window
	s.writeSegment("2025-03-04") // inside the window
	s.writeSegment("2025-06-01") // today

	res, err := s.newSweeper().Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, res.SweptSegments)
	s.Zero(res.Errors)

	entries, err := os.ReadDir(s.segmentDir)
	s.Require().NoError(err)
	s.Len(entries, 2)
	for _, entry := range entries {
		s.NotEqual("audit-2025-01-15.jsonl", entry.Name())
	}
}

func (s *SweeperSuite) TestSegmentAtBoundaryKept() {
	// Closed exactly 90 days before now, not yet past the window.
	s.writeSegment("2025-03-03")
	res, err := s.newSweeper().Sweep(s.ctx)
	s.Require().NoError(err)
	s.Zero(res.SweptSegments)
}

func (s *SweeperSuite) TestForeignFilesIgnored() {
	s.Require().NoError(os.WriteFile(filepath.Join(s.segmentDir, "notes.txt"), []byte("keep"), 0o600))
	s.Require().NoError(os.WriteFile(filepath.Join(s.segmentDir, "audit-garbage.jsonl"), []byte("keep"), 0o600))

	res, err := s.newSweeper().Sweep(s.ctx)
	s.Require().NoError(err)
	s.Zero(res.SweptSegments)

	entries, err := os.ReadDir(s.segmentDir)
	s.Require().NoError(err)
	s.Len(entries, 2)
}

func (s *SweeperSuite) TestSpoolSweptByModTime() {
	s.writeSpool("enc-1_bundle.pdf", 120*24*time.Hour)
	s.writeSpool("enc-2_bundle.pdf", 5*24*time.Hour)

	res, err := s.newSweeper().Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, res.SweptSpool)

	entries, err := os.ReadDir(s.spoolDir)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("enc-2_bundle.pdf", entries[0].Name())
}

func (s *SweeperSuite) TestSweepAudited() {
	s.writeSegment("2025-01-15")
	s.writeSpool("enc-1_bundle.pdf", 120*24*time.Hour)

	_, err := s.newSweeper().Sweep(s.ctx)
	s.Require().NoError(err)

	s.Require().Len(s.recorder.events, 1)
	ev := s.recorder.events[0]
	s.Equal(audit.EventRetentionPurge, ev.Event)
	s.Equal(audit.SystemEncounterID, ev.EncounterID)
	s.Equal("1", ev.Meta["swept_segments"])
	s.Equal("1", ev.Meta["swept_spool"])
	s.Equal("0", ev.Meta["errors"])
	s.Equal("90", ev.Meta["retention_days"])
}

func (s *SweeperSuite) TestEmptyDirectoriesAreCleanSweep() {
	res, err := s.newSweeper().Sweep(s.ctx)
	s.Require().NoError(err)
	s.Zero(res.SweptSegments)
	s.Zero(res.SweptSpool)
	s.Require().Len(s.recorder.events, 1)
}

func (s *SweeperSuite) TestMissingDirectoriesTolerated() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sw := NewSweeper(filepath.Join(s.segmentDir, "absent"), filepath.Join(s.spoolDir, "absent"),
		s.recorder, log, WithSweeperClock(func() time.Time { return s.now }))
	res, err := sw.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Zero(res.Errors)
}
