package cascade

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"charak/internal/audit"
	"charak/internal/consent/metrics"
	dErrors "charak/pkg/domain-errors"
)

// Clock abstracts time for tests.
type Clock func() time.Time

// Recorder appends to the tamper-evident audit log.
type Recorder interface {
	Log(ctx context.Context, encounterID string, event audit.EventType, actor audit.Actor, meta map[string]string) error
}

// Summary reports what one cascade run removed.
type Summary struct {
	EncounterID    string    `json:"encounter_id"`
	CancelledJobs  int       `json:"cancelled_jobs"`
	WipedFiles     int       `json:"wiped_files"`
	CancelledTasks int       `json:"cancelled_tasks"`
	RanAt          time.Time `json:"ran_at"`
}

// Total returns the number of artifacts removed across all areas.
func (s Summary) Total() int {
	return s.CancelledJobs + s.WipedFiles + s.CancelledTasks
}

// Canceller runs the withdrawal cascade: queued jobs, spooled payload
// files, and in-flight tasks are torn down in parallel. Unconfigured
// areas (nil queue or spool) count as empty.
type Canceller struct {
	queue    Queue
	spool    Spool
	tasks    *TaskRegistry
	recorder Recorder
	logger   *slog.Logger
	metrics  *metrics.Metrics
	clock    Clock
}

// CancellerOption configures a Canceller.
type CancellerOption func(*Canceller)

// WithCancellerClock injects a test clock.
func WithCancellerClock(clock Clock) CancellerOption {
	return func(c *Canceller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithCancellerMetrics attaches Prometheus metrics.
func WithCancellerMetrics(m *metrics.Metrics) CancellerOption {
	return func(c *Canceller) {
		c.metrics = m
	}
}

// NewCanceller wires the cascade over its three cleanup areas.
func NewCanceller(queue Queue, spool Spool, tasks *TaskRegistry, recorder Recorder, logger *slog.Logger, opts ...CancellerOption) *Canceller {
	c := &Canceller{
		queue:    queue,
		spool:    spool,
		tasks:    tasks,
		recorder: recorder,
		logger:   logger,
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// CleanupEncounter removes every queued and in-flight artifact for an
// encounter. Idempotent: a second run with nothing left succeeds with
// zero counts. The counts are always audited as CANCELLED_COUNT, even
// for an empty run, so the trail shows the cascade happened.
func (c *Canceller) CleanupEncounter(ctx context.Context, encounterID string) (Summary, error) {
	if encounterID == "" {
		return Summary{}, dErrors.New(dErrors.CodeInvalidInput, "encounter id is required")
	}

	summary := Summary{EncounterID: encounterID, RanAt: c.clock().UTC()}

	// Each goroutine writes its own summary field.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if c.queue == nil {
			return nil
		}
		n, err := c.queue.CancelByEncounter(gctx, encounterID)
		summary.CancelledJobs = n
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "cancel queued jobs")
		}
		return nil
	})
	g.Go(func() error {
		if c.spool == nil {
			return nil
		}
		n, err := c.spool.WipeEncounter(gctx, encounterID)
		summary.WipedFiles = n
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "wipe spooled payloads")
		}
		return nil
	})
	g.Go(func() error {
		if c.tasks != nil {
			summary.CancelledTasks = c.tasks.CancelEncounter(encounterID)
		}
		return nil
	})
	runErr := g.Wait()

	c.metrics.IncrementCascade(runErr != nil)
	c.metrics.AddCascadeItems("jobs", summary.CancelledJobs)
	c.metrics.AddCascadeItems("spool", summary.WipedFiles)
	c.metrics.AddCascadeItems("tasks", summary.CancelledTasks)

	if c.recorder != nil {
		meta := map[string]string{
			"jobs":  strconv.Itoa(summary.CancelledJobs),
			"files": strconv.Itoa(summary.WipedFiles),
			"tasks": strconv.Itoa(summary.CancelledTasks),
		}
		if err := c.recorder.Log(ctx, encounterID, audit.EventCancelledCount, audit.ActorApp, meta); err != nil {
			c.logger.WarnContext(ctx, "cascade count not audited",
				slog.String("encounter_id", encounterID),
				slog.String("error", err.Error()))
		}
	}

	if runErr != nil {
		c.logger.ErrorContext(ctx, "consent cascade incomplete",
			slog.String("encounter_id", encounterID),
			slog.Int("cancelled_jobs", summary.CancelledJobs),
			slog.Int("wiped_files", summary.WipedFiles),
			slog.Int("cancelled_tasks", summary.CancelledTasks),
			slog.String("error", runErr.Error()))
		return summary, runErr
	}

	c.logger.DebugContext(ctx, "consent cascade complete",
		slog.String("encounter_id", encounterID),
		slog.Int("cancelled_jobs", summary.CancelledJobs),
		slog.Int("wiped_files", summary.WipedFiles),
		slog.Int("cancelled_tasks", summary.CancelledTasks))
	return summary, nil
}
