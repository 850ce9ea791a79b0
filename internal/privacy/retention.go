package privacy

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"charak/internal/audit"
	"charak/internal/privacy/metrics"
	dErrors "charak/pkg/domain-errors"
)

// DefaultRetention is how long exported artifacts and closed audit
// segments are kept on the device before the sweep removes them.
const DefaultRetention = 90 * 24 * time.Hour

// Clock abstracts time for tests.
type Clock func() time.Time

// Recorder appends to the tamper-evident audit log.
type Recorder interface {
	Log(ctx context.Context, encounterID string, event audit.EventType, actor audit.Actor, meta map[string]string) error
}

// SweepResult summarizes one retention pass.
type SweepResult struct {
	SweptSegments int
	SweptSpool    int
	Errors        int
}

// Sweeper removes artifacts older than the retention window from the
// audit segment and spool directories. Every pass is itself audited as
// RETENTION_PURGE so the deletions are in the chain they thin out.
type Sweeper struct {
	segmentDir string
	spoolDir   string
	retention  time.Duration
	recorder   Recorder
	logger     *slog.Logger
	metrics    *metrics.Metrics
	clock      Clock
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweeperClock injects a test clock.
func WithSweeperClock(clock Clock) SweeperOption {
	return func(s *Sweeper) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithSweeperRetention overrides the retention window.
func WithSweeperRetention(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithSweeperMetrics attaches Prometheus metrics.
func WithSweeperMetrics(m *metrics.Metrics) SweeperOption {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

// NewSweeper builds a Sweeper over the given directories. Either
// directory may be empty to skip that half of the sweep.
func NewSweeper(segmentDir, spoolDir string, recorder Recorder, logger *slog.Logger, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		segmentDir: segmentDir,
		spoolDir:   spoolDir,
		retention:  DefaultRetention,
		recorder:   recorder,
		logger:     logger,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep removes expired artifacts and audits the counts. Removal
// failures are counted, logged and do not abort the pass.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	cutoff := s.clock().Add(-s.retention)
	var res SweepResult

	if s.segmentDir != "" {
		swept, errs := s.sweepSegments(ctx, cutoff)
		res.SweptSegments = swept
		res.Errors += errs
	}
	if s.spoolDir != "" {
		swept, errs := s.sweepDirByModTime(ctx, s.spoolDir, cutoff)
		res.SweptSpool = swept
		res.Errors += errs
	}

	s.metrics.IncrementSweeps()
	s.metrics.AddSweptArtifacts(res.SweptSegments + res.SweptSpool)
	s.metrics.AddSweepErrors(res.Errors)

	if s.recorder != nil {
		meta := map[string]string{
			"swept_segments": strconv.Itoa(res.SweptSegments),
			"swept_spool":    strconv.Itoa(res.SweptSpool),
			"errors":         strconv.Itoa(res.Errors),
			"retention_days": strconv.Itoa(int(s.retention.Hours() / 24)),
		}
		if err := s.recorder.Log(ctx, audit.SystemEncounterID, audit.EventRetentionPurge, audit.ActorApp, meta); err != nil {
			return res, dErrors.Wrap(err, dErrors.CodeIntegrity, "audit retention sweep")
		}
	}

	s.logger.InfoContext(ctx, "retention sweep completed",
		slog.Int("swept_segments", res.SweptSegments),
		slog.Int("swept_spool", res.SweptSpool),
		slog.Int("errors", res.Errors))
	return res, nil
}

// sweepSegments removes closed audit segments whose date, taken from
// the audit-2006-01-02.jsonl name, is past the cutoff. The current
// day's segment never qualifies.
func (s *Sweeper) sweepSegments(ctx context.Context, cutoff time.Time) (swept, errs int) {
	entries, err := os.ReadDir(s.segmentDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0
		}
		s.logger.WarnContext(ctx, "retention sweep read segments", slog.String("error", err.Error()))
		return 0, 1
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "audit-") || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		day, err := time.Parse("2006-01-02", strings.TrimSuffix(strings.TrimPrefix(name, "audit-"), ".jsonl"))
		if err != nil {
			continue
		}
		// The segment is closed at the end of its day.
		if !day.Add(24 * time.Hour).Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.segmentDir, name)); err != nil {
			s.logger.WarnContext(ctx, "retention sweep remove segment",
				slog.String("segment", name), slog.String("error", err.Error()))
			errs++
			continue
		}
		swept++
	}
	return swept, errs
}

// sweepDirByModTime removes regular files older than the cutoff by
// modification time. Spool artifacts carry no date in their names.
func (s *Sweeper) sweepDirByModTime(ctx context.Context, dir string, cutoff time.Time) (swept, errs int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0
		}
		s.logger.WarnContext(ctx, "retention sweep read spool", slog.String("error", err.Error()))
		return 0, 1
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			errs++
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			s.logger.WarnContext(ctx, "retention sweep remove artifact",
				slog.String("artifact", entry.Name()), slog.String("error", err.Error()))
			errs++
			continue
		}
		swept++
	}
	return swept, errs
}
