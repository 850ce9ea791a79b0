package consent

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"charak/internal/audit"
	"charak/internal/consent/cascade"
	"charak/internal/consent/metrics"
	dErrors "charak/pkg/domain-errors"
	"charak/pkg/sentinel"
)

// Clock abstracts time for tests.
type Clock func() time.Time

// Recorder appends to the tamper-evident audit log.
type Recorder interface {
	Log(ctx context.Context, encounterID string, event audit.EventType, actor audit.Actor, meta map[string]string) error
}

// Cleaner tears down queued and in-flight work when consent goes away.
// Implemented by cascade.Canceller.
type Cleaner interface {
	CleanupEncounter(ctx context.Context, encounterID string) (cascade.Summary, error)
}

// Service is the per-encounter consent state machine. Every transition
// persists the new status, appends to the encounter's history, and is
// mirrored into the audit chain. Withdrawal and expiry additionally run
// the cleanup cascade.
type Service struct {
	store    Store
	recorder Recorder
	cleaner  Cleaner
	logger   *slog.Logger
	metrics  *metrics.Metrics
	clock    Clock

	// Transitions on the same encounter serialize so two concurrent
	// withdraws cannot both observe GIVEN.
	mu sync.Mutex
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceClock injects a test clock.
func WithServiceClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithServiceMetrics attaches Prometheus metrics.
func WithServiceMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService wires the consent state machine. A nil cleaner disables the
// withdrawal cascade, which is only acceptable in tests.
func NewService(store Store, recorder Recorder, cleaner Cleaner, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		recorder: recorder,
		cleaner:  cleaner,
		logger:   logger,
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Give transitions an encounter to GIVEN. Valid from NOT_SET and, for
// re-consent, from WITHDRAWN or EXPIRED. Audited as CONSENT_ON.
func (s *Service) Give(ctx context.Context, encounterID string, actor audit.Actor, meta map[string]string) (Record, error) {
	if err := validateTransitionInput(encounterID, actor); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.loadOrInit(ctx, encounterID)
	if err != nil {
		return Record{}, err
	}
	from := record.Status
	if err := record.Apply(StatusGiven, s.clock().UTC(), actor, ""); err != nil {
		return Record{}, err
	}
	for k, v := range meta {
		if record.Meta == nil {
			record.Meta = make(map[string]string, len(meta))
		}
		record.Meta[k] = v
	}
	if err := s.store.Put(ctx, record); err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "persist consent record")
	}

	s.metrics.IncrementTransition(string(from), string(StatusGiven))
	s.audit(ctx, encounterID, audit.EventConsentOn, actor, map[string]string{"previous": string(from)})
	s.logger.InfoContext(ctx, "consent given",
		slog.String("encounter_id", encounterID),
		slog.String("previous", string(from)))
	return record, nil
}

// Withdraw transitions GIVEN to WITHDRAWN, audits CONSENT_OFF, and runs
// the cleanup cascade. The record is withdrawn even when the cascade
// fails; the returned error then reports the incomplete cleanup.
func (s *Service) Withdraw(ctx context.Context, encounterID string, actor audit.Actor, reason string) (Record, cascade.Summary, error) {
	return s.revoke(ctx, encounterID, StatusWithdrawn, actor, reason, nil)
}

// Expire transitions GIVEN to EXPIRED by policy rather than by patient
// decision. Cleanup semantics match Withdraw.
func (s *Service) Expire(ctx context.Context, encounterID string, actor audit.Actor, reason string) (Record, cascade.Summary, error) {
	return s.revoke(ctx, encounterID, StatusExpired, actor, reason, map[string]string{"cause": "expired"})
}

func (s *Service) revoke(ctx context.Context, encounterID string, to Status, actor audit.Actor, reason string, extraMeta map[string]string) (Record, cascade.Summary, error) {
	if err := validateTransitionInput(encounterID, actor); err != nil {
		return Record{}, cascade.Summary{}, err
	}

	s.mu.Lock()
	record, err := s.loadOrInit(ctx, encounterID)
	if err != nil {
		s.mu.Unlock()
		return Record{}, cascade.Summary{}, err
	}
	from := record.Status
	if err := record.Apply(to, s.clock().UTC(), actor, reason); err != nil {
		s.mu.Unlock()
		return Record{}, cascade.Summary{}, err
	}
	if err := s.store.Put(ctx, record); err != nil {
		s.mu.Unlock()
		return Record{}, cascade.Summary{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "persist consent record")
	}
	s.mu.Unlock()

	s.metrics.IncrementTransition(string(from), string(to))
	meta := map[string]string{"previous": string(from)}
	if reason != "" {
		meta["reason"] = reason
	}
	for k, v := range extraMeta {
		meta[k] = v
	}
	s.audit(ctx, encounterID, audit.EventConsentOff, actor, meta)
	s.logger.InfoContext(ctx, "consent revoked",
		slog.String("encounter_id", encounterID),
		slog.String("status", string(to)))

	if s.cleaner == nil {
		return record, cascade.Summary{EncounterID: encounterID}, nil
	}
	summary, err := s.cleaner.CleanupEncounter(ctx, encounterID)
	if err != nil {
		return record, summary, err
	}
	return record, summary, nil
}

// HasConsent reports whether the encounter is currently GIVEN. Encounters
// with no record are NOT_SET, so false.
func (s *Service) HasConsent(ctx context.Context, encounterID string) (bool, error) {
	if encounterID == "" {
		return false, dErrors.New(dErrors.CodeInvalidInput, "encounter id is required")
	}
	record, err := s.store.Get(ctx, encounterID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "load consent record")
	}
	return record.Status == StatusGiven, nil
}

// Get returns the consent record for an encounter.
func (s *Service) Get(ctx context.Context, encounterID string) (Record, error) {
	if encounterID == "" {
		return Record{}, dErrors.New(dErrors.CodeInvalidInput, "encounter id is required")
	}
	record, err := s.store.Get(ctx, encounterID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Record{}, dErrors.Newf(dErrors.CodeNotFound, "no consent record for encounter %s", encounterID)
		}
		return Record{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "load consent record")
	}
	return record, nil
}

// List returns all consent records.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list consent records")
	}
	return records, nil
}

// loadOrInit returns the stored record or a fresh NOT_SET one.
func (s *Service) loadOrInit(ctx context.Context, encounterID string) (Record, error) {
	record, err := s.store.Get(ctx, encounterID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return NewRecord(encounterID, s.clock().UTC()), nil
		}
		return Record{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "load consent record")
	}
	return record, nil
}

// audit mirrors a transition into the hash chain. Chain failures are
// reportable but do not roll back the already-persisted transition.
func (s *Service) audit(ctx context.Context, encounterID string, event audit.EventType, actor audit.Actor, meta map[string]string) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Log(ctx, encounterID, event, actor, meta); err != nil {
		s.logger.WarnContext(ctx, "consent transition not audited",
			slog.String("encounter_id", encounterID),
			slog.String("event", string(event)),
			slog.String("error", err.Error()))
	}
}

func validateTransitionInput(encounterID string, actor audit.Actor) error {
	if encounterID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "encounter id is required")
	}
	if !actor.IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown actor %q", actor)
	}
	return nil
}
