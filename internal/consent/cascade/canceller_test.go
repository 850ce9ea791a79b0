package cascade

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"charak/internal/audit"
	dErrors "charak/pkg/domain-errors"
)

type recordedEvent struct {
	EncounterID string
	Event       audit.EventType
	Meta        map[string]string
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeRecorder) Log(_ context.Context, encounterID string, event audit.EventType, _ audit.Actor, meta map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{EncounterID: encounterID, Event: event, Meta: meta})
	return nil
}

type CancellerSuite struct {
	suite.Suite
	queue    *MemoryQueue
	spool    *FileSpool
	tasks    *TaskRegistry
	recorder *fakeRecorder
	canc     *Canceller
	ctx      context.Context
}

func TestCancellerSuite(t *testing.T) {
	suite.Run(t, new(CancellerSuite))
}

func (s *CancellerSuite) SetupTest() {
	s.queue = NewMemoryQueue()
	s.spool = NewFileSpool(s.T().TempDir())
	s.tasks = NewTaskRegistry()
	s.recorder = &fakeRecorder{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.canc = NewCanceller(s.queue, s.spool, s.tasks, s.recorder, log,
		WithCancellerClock(func() time.Time {
			return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
		}))
	s.ctx = context.Background()
}

func (s *CancellerSuite) enqueue(encounterID, id string, kind Kind) {
	s.Require().NoError(s.queue.Enqueue(s.ctx, Job{
		ID:          id,
		EncounterID: encounterID,
		Kind:        kind,
		EnqueuedAt:  time.Now().UTC(),
	}))
}

func (s *CancellerSuite) TestCleanupRemovesAllAreas() {
	s.enqueue("enc-1", "job-1", KindDocRender)
	s.enqueue("enc-1", "job-2", KindExport)
	s.enqueue("enc-2", "job-3", KindTelemetry)

	_, err := s.spool.Write(s.ctx, "enc-1", "note.pdf", []byte("rendered"))
	s.Require().NoError(err)
	_, err = s.spool.Write(s.ctx, "enc-2", "note.pdf", []byte("kept"))
	s.Require().NoError(err)

	_, cancel := context.WithCancel(s.ctx)
	s.tasks.Register("enc-1", cancel)

	summary, err := s.canc.CleanupEncounter(s.ctx, "enc-1")
	s.Require().NoError(err)
	s.Equal(2, summary.CancelledJobs)
	s.Equal(1, summary.WipedFiles)
	s.Equal(1, summary.CancelledTasks)

	remaining, err := s.queue.ListByEncounter(s.ctx, "enc-2")
	s.Require().NoError(err)
	s.Len(remaining, 1)
}

func (s *CancellerSuite) TestCleanupIsIdempotent() {
	s.enqueue("enc-1", "job-1", KindDocRender)

	first, err := s.canc.CleanupEncounter(s.ctx, "enc-1")
	s.Require().NoError(err)
	s.Equal(1, first.Total())

	second, err := s.canc.CleanupEncounter(s.ctx, "enc-1")
	s.Require().NoError(err)
	s.Zero(second.Total())
	s.Len(s.recorder.events, 2)
}

func (s *CancellerSuite) TestEmptyRunStillAudited() {
	summary, err := s.canc.CleanupEncounter(s.ctx, "enc-none")
	s.Require().NoError(err)
	s.Zero(summary.Total())

	s.Require().Len(s.recorder.events, 1)
	event := s.recorder.events[0]
	s.Equal(audit.EventCancelledCount, event.Event)
	s.Equal("0", event.Meta["jobs"])
	s.Equal("0", event.Meta["files"])
	s.Equal("0", event.Meta["tasks"])
}

func (s *CancellerSuite) TestEmptyEncounterIDRejected() {
	_, err := s.canc.CleanupEncounter(s.ctx, "")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
}

func (s *CancellerSuite) TestReleasedTaskNotCancelled() {
	_, cancel := context.WithCancel(s.ctx)
	release := s.tasks.Register("enc-1", cancel)
	release()
	release()

	summary, err := s.canc.CleanupEncounter(s.ctx, "enc-1")
	s.Require().NoError(err)
	s.Zero(summary.CancelledTasks)
}

func TestTaskRegistryCancelsContexts(t *testing.T) {
	registry := NewTaskRegistry()
	ctx1, cancel1 := context.WithCancel(context.Background())
	ctx2, cancel2 := context.WithCancel(context.Background())
	registry.Register("enc-1", cancel1)
	registry.Register("enc-2", cancel2)

	require.Equal(t, 1, registry.CancelEncounter("enc-1"))
	require.Error(t, ctx1.Err())
	require.NoError(t, ctx2.Err())
}

func TestFileSpoolRejectsPathParts(t *testing.T) {
	spool := NewFileSpool(t.TempDir())
	_, err := spool.Write(context.Background(), "../escape", "name", []byte("x"))
	require.Error(t, err)
}

func TestFileSpoolWipeMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "absent")
	spool := NewFileSpool(dir)
	wiped, err := spool.WipeEncounter(context.Background(), "enc-1")
	require.NoError(t, err)
	require.Zero(t, wiped)
	_, statErr := os.Stat(dir)
	require.True(t, os.IsNotExist(statErr))
}
