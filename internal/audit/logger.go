package audit

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"charak/internal/audit/metrics"
	dErrors "charak/pkg/domain-errors"
)

var tracer trace.Tracer = otel.Tracer("charak/internal/audit")

// ChainKeyProvider supplies the active chain MAC key. The key lifecycle
// manager implements this; tests use a fixed in-memory provider.
type ChainKeyProvider interface {
	// ActiveChainKey returns the id and material of the HMAC key that
	// must sign the next chain link.
	ActiveChainKey(ctx context.Context) (kid string, key []byte, err error)
}

const loggerStripes = 32

// stripe serializes appends for the encounters hashing into it and caches
// their chain tails.
type stripe struct {
	mu sync.Mutex
	// tails maps encounter id to its last persisted event. The tail is
	// cached as the event itself, not its hash, because the next link is
	// MACed with whatever key is active at append time.
	tails map[string]Event
}

// Logger appends hash-chained audit events. Appends for the same
// encounter are serialized because each link commits to the previous
// event; two racing appends would fork the chain.
//
// Audit failure is non-fatal by policy: callers get an error to surface
// but are expected to continue their primary operation.
type Logger struct {
	store   Store
	keys    ChainKeyProvider
	clock   Clock
	logger  *slog.Logger
	metrics *metrics.Metrics

	stripes [loggerStripes]*stripe
}

// LoggerOption configures a Logger instance.
type LoggerOption func(*Logger)

// WithLoggerClock sets the clock used for event timestamps.
func WithLoggerClock(clock Clock) LoggerOption {
	return func(l *Logger) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithLoggerMetrics attaches append/verification metrics.
func WithLoggerMetrics(m *metrics.Metrics) LoggerOption {
	return func(l *Logger) {
		l.metrics = m
	}
}

func NewLogger(store Store, keys ChainKeyProvider, logger *slog.Logger, opts ...LoggerOption) *Logger {
	l := &Logger{
		store:  store,
		keys:   keys,
		clock:  time.Now,
		logger: logger,
	}
	for i := range l.stripes {
		l.stripes[i] = &stripe{tails: make(map[string]Event)}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

func (l *Logger) stripeFor(encounterID string) *stripe {
	h := fnv.New32a()
	h.Write([]byte(encounterID))
	return l.stripes[h.Sum32()%loggerStripes]
}

// Log appends one event to the encounter's chain. The prev_hash of the
// new event is the HMAC of the encounter's current tail under the active
// key, or the genesis sentinel when the encounter has no tail or the
// active key changed since the tail was written (segment reset at a
// rollover boundary).
func (l *Logger) Log(ctx context.Context, encounterID string, event EventType, actor Actor, meta map[string]string) error {
	if encounterID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "encounter id is required")
	}
	if !event.IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown event type %q", event)
	}
	if !actor.IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown actor %q", actor)
	}

	ctx, span := tracer.Start(ctx, "audit.append")
	defer span.End()
	span.SetAttributes(
		attribute.String("audit.encounter_id", encounterID),
		attribute.String("audit.event", event.String()),
	)

	start := l.clock()

	kid, key, err := l.keys.ActiveChainKey(ctx)
	if err != nil {
		l.metrics.IncrementAppendFailure("keys")
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "resolve active chain key")
	}

	st := l.stripeFor(encounterID)
	st.mu.Lock()
	defer st.mu.Unlock()

	tail, ok := st.tails[encounterID]
	if !ok {
		tail, ok, err = l.loadTail(ctx, encounterID)
		if err != nil {
			l.metrics.IncrementAppendFailure("io")
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "load encounter chain tail")
		}
	}

	prevHash := GenesisSentinel
	if ok && tail.KeyID == kid {
		prevHash = ComputeLink(key, tail)
	}

	e := Event{
		EncounterID: encounterID,
		KeyID:       kid,
		PrevHash:    prevHash,
		Event:       event,
		Timestamp:   l.clock().UTC(),
		Actor:       actor,
		Meta:        meta,
	}
	if err := e.Validate(); err != nil {
		l.metrics.IncrementAppendFailure("serialize")
		return err
	}

	if err := l.store.Append(ctx, e); err != nil {
		l.metrics.IncrementAppendFailure("io")
		l.logger.ErrorContext(ctx, "audit append failed",
			"encounter_id", encounterID, "event", event.String(), "error", err)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "append audit event")
	}

	st.tails[encounterID] = e
	l.metrics.IncrementAppended(event.String(), actor.String())
	l.metrics.ObserveAppendLatency(l.clock().Sub(start))
	l.logger.DebugContext(ctx, "audit event chained",
		"encounter_id", encounterID, "event", event.String(), "actor", actor.String(), "kid", kid)
	return nil
}

// loadTail replays the encounter from the store to recover its tail after
// a restart. Holding the stripe lock, so at most one replay per encounter
// miss.
func (l *Logger) loadTail(ctx context.Context, encounterID string) (Event, bool, error) {
	events, err := l.store.ListByEncounter(ctx, encounterID)
	if err != nil {
		return Event{}, false, err
	}
	if len(events) == 0 {
		return Event{}, false, nil
	}
	return events[len(events)-1], true, nil
}
