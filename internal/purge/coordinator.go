package purge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"charak/internal/audit"
	"charak/internal/purge/metrics"
	dErrors "charak/pkg/domain-errors"
	"charak/pkg/sentinel"
)

// Clock abstracts time for tests.
type Clock func() time.Time

// Recorder appends to the tamper-evident audit log.
type Recorder interface {
	Log(ctx context.Context, encounterID string, event audit.EventType, actor audit.Actor, meta map[string]string) error
}

// State is the coordinator's session lifecycle state.
type State string

const (
	StateIdle   State = "IDLE"
	StateActive State = "ACTIVE"
)

// session is the live ephemeral session. The buffer exists only here;
// by construction nothing of it survives the process.
type session struct {
	id          string
	encounterID string
	startedAt   time.Time
	buffer      *Buffer
}

// Coordinator runs the ephemeral session lifecycle: IDLE → ACTIVE →
// clean end or abandonment. The pending-purge flag is written durably
// before the first byte is buffered and cleared only on clean end, so
// the flag's presence at startup is proof of a crashed session.
type Coordinator struct {
	flags    FlagStore
	recorder Recorder
	logger   *slog.Logger
	metrics  *metrics.Metrics
	clock    Clock

	mu      sync.Mutex
	state   State
	current *session
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithCoordinatorClock injects a test clock.
func WithCoordinatorClock(clock Clock) CoordinatorOption {
	return func(c *Coordinator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithCoordinatorMetrics attaches Prometheus metrics.
func WithCoordinatorMetrics(m *metrics.Metrics) CoordinatorOption {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

func NewCoordinator(flags FlagStore, recorder Recorder, logger *slog.Logger, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		flags:    flags,
		recorder: recorder,
		logger:   logger,
		clock:    time.Now,
		state:    StateIdle,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StartSession opens an ephemeral session for an encounter. The durable
// flag is written and synced before the buffer exists; if that write
// fails the session does not start, because an untracked buffer could
// never be proven purged.
func (c *Coordinator) StartSession(ctx context.Context, encounterID string) (string, error) {
	if encounterID == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "encounter id is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateActive {
		return "", dErrors.Newf(dErrors.CodeConflict, "session %s already active", c.current.id)
	}

	now := c.clock().UTC()
	sessionID := uuid.NewString()
	flag := PendingFlag{SessionID: sessionID, EncounterID: encounterID, StartedAt: now}
	if err := c.flags.Set(ctx, flag); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "persist pending purge flag")
	}

	c.current = &session{
		id:          sessionID,
		encounterID: encounterID,
		startedAt:   now,
		buffer:      NewBuffer(),
	}
	c.state = StateActive

	c.metrics.IncrementSessions()
	c.logger.InfoContext(ctx, "ephemeral session started",
		slog.String("session_id", sessionID),
		slog.String("encounter_id", encounterID))
	return sessionID, nil
}

// Append buffers a transcript chunk for the active session.
func (c *Coordinator) Append(_ context.Context, chunk []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return dErrors.New(dErrors.CodeConflict, "no active session")
	}
	c.current.buffer.Append(chunk)
	return nil
}

// BufferLen returns the active session's buffered byte count, zero when
// idle.
func (c *Coordinator) BufferLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return 0
	}
	return c.current.buffer.Len()
}

// EndSession closes the active session cleanly: zeroize the buffer,
// clear the durable flag, audit SESSION_END. The buffer is wiped even if
// clearing the flag fails: a stale flag costs one spurious
// ABANDON_PURGE at next start, a lingering buffer costs patient data.
func (c *Coordinator) EndSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return dErrors.New(dErrors.CodeConflict, "no active session")
	}

	sess := c.current
	sess.buffer.Wipe()
	c.current = nil
	c.state = StateIdle

	clearErr := c.flags.Clear(ctx)

	c.audit(ctx, sess.encounterID, audit.EventSessionEnd, map[string]string{
		"session_id": sess.id,
	})
	c.metrics.IncrementCleanEnds()
	c.logger.InfoContext(ctx, "ephemeral session ended",
		slog.String("session_id", sess.id),
		slog.String("encounter_id", sess.encounterID))

	if clearErr != nil {
		return dErrors.Wrap(clearErr, dErrors.CodeUnavailable, "clear pending purge flag")
	}
	return nil
}

// RecoverAbandoned checks for a pending-purge flag left by a crashed
// process. The crashed process's buffer was memory-only and is gone by
// construction, so recovery is bookkeeping: audit ABANDON_PURGE with the
// orphaned session id and clear the flag. Called once at daemon startup,
// before any new session. Returns the orphaned flag when one was found.
func (c *Coordinator) RecoverAbandoned(ctx context.Context) (PendingFlag, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateActive {
		return PendingFlag{}, false, dErrors.New(dErrors.CodeConflict, "recovery must run before any session starts")
	}

	flag, err := c.flags.Get(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return PendingFlag{}, false, nil
		}
		if errors.Is(err, sentinel.ErrCorrupted) {
			// A corrupt flag still proves a session never ended cleanly.
			c.audit(ctx, audit.SystemEncounterID, audit.EventAbandonPurge, map[string]string{
				"session_id": "unknown",
				"detail":     "pending purge flag corrupted",
			})
			if clearErr := c.flags.Clear(ctx); clearErr != nil {
				return PendingFlag{}, false, dErrors.Wrap(clearErr, dErrors.CodeUnavailable, "clear corrupted purge flag")
			}
			c.metrics.IncrementAbandoned()
			return PendingFlag{}, true, nil
		}
		return PendingFlag{}, false, dErrors.Wrap(err, dErrors.CodeUnavailable, "read pending purge flag")
	}

	encounterID := flag.EncounterID
	if encounterID == "" {
		encounterID = audit.SystemEncounterID
	}
	c.audit(ctx, encounterID, audit.EventAbandonPurge, map[string]string{
		"session_id": flag.SessionID,
		"started_at": flag.StartedAt.UTC().Format(time.RFC3339),
	})

	if err := c.flags.Clear(ctx); err != nil {
		return flag, false, dErrors.Wrap(err, dErrors.CodeUnavailable, "clear pending purge flag")
	}

	c.metrics.IncrementAbandoned()
	c.logger.WarnContext(ctx, "abandoned ephemeral session purged",
		slog.String("session_id", flag.SessionID),
		slog.String("encounter_id", flag.EncounterID))
	return flag, true, nil
}

// ForcePurge wipes the live buffer immediately and ends the session.
// Always audited as FORCE_PURGE, even when no session is active, so the
// trail shows the manual wipe was requested and acted on.
func (c *Coordinator) ForcePurge(ctx context.Context, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	meta := map[string]string{"reason": reason}
	encounterID := audit.SystemEncounterID

	if c.state == StateActive {
		sess := c.current
		sess.buffer.Wipe()
		c.current = nil
		c.state = StateIdle
		meta["session_id"] = sess.id
		encounterID = sess.encounterID

		if err := c.flags.Clear(ctx); err != nil {
			c.audit(ctx, encounterID, audit.EventForcePurge, meta)
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "clear pending purge flag")
		}
	}

	c.audit(ctx, encounterID, audit.EventForcePurge, meta)
	c.metrics.IncrementForcePurge()
	c.logger.InfoContext(ctx, "force purge executed", slog.String("reason", reason))
	return nil
}

// audit mirrors a purge lifecycle event into the hash chain. Chain
// failures are reportable but never block the purge itself.
func (c *Coordinator) audit(ctx context.Context, encounterID string, event audit.EventType, meta map[string]string) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Log(ctx, encounterID, event, audit.ActorApp, meta); err != nil {
		c.logger.WarnContext(ctx, "purge event not audited",
			slog.String("event", string(event)),
			slog.String("error", err.Error()))
	}
}
