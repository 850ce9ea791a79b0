package pinning

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	dErrors "charak/pkg/domain-errors"
	"charak/pkg/sentinel"
)

// Clock abstracts time for tests.
type Clock func() time.Time

// Service manages the pin set per hostname: add, rotate with the old pin
// retained as backup, live break testing, and rotation playbooks.
type Service struct {
	store   Store
	dialer  Dialer
	logger  *slog.Logger
	clock   Clock
	timeout time.Duration

	// mu serializes rotations per service instance; the active-pin
	// invariant is checked and changed in two store writes.
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

// WithBreakTestTimeout bounds the live handshake of BreakTest.
func WithBreakTestTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithDialer replaces the TLS dialer, for tests.
func WithDialer(d Dialer) ServiceOption {
	return func(s *Service) {
		if d != nil {
			s.dialer = d
		}
	}
}

func NewService(store Store, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		dialer:  tlsDialer{},
		logger:  logger,
		clock:   time.Now,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// AddPin stores the first pin for a hostname. A hostname with an active
// pin must rotate instead, so a stray re-add cannot silently discard the
// backup pin.
func (s *Service) AddPin(ctx context.Context, hostname string, cert *x509.Certificate) (PinMetadata, error) {
	if hostname == "" {
		return PinMetadata{}, dErrors.New(dErrors.CodeInvalidInput, "hostname is required")
	}
	if cert == nil {
		return PinMetadata{}, dErrors.New(dErrors.CodeInvalidInput, "certificate is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.store.ActiveByHost(ctx, hostname)
	if err == nil {
		return PinMetadata{}, dErrors.Newf(dErrors.CodeConflict, "hostname %s already has an active pin; rotate instead", hostname)
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return PinMetadata{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "load active pin")
	}

	meta := PinMetadata{
		PinID:     uuid.NewString(),
		Hostname:  hostname,
		PinType:   PinTypeSHA256,
		PinValue:  ComputePin(cert),
		IsActive:  true,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.store.Put(ctx, meta); err != nil {
		return PinMetadata{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "persist pin metadata")
	}

	s.logger.InfoContext(ctx, "certificate pin added",
		slog.String("hostname", hostname), slog.String("pin", meta.PinValue))
	return meta, nil
}

// RotatePin replaces the active pin for a hostname with one computed
// from newCert. Rotation without a pre-existing active pin fails
// explicitly; there is no implicit create-on-rotate. The old pin is
// retired but retained as the backup in the live pin set. A renewed
// certificate under the same key pair produces an unchanged pin; the
// rotation still succeeds and reports Changed=false.
func (s *Service) RotatePin(ctx context.Context, hostname string, newCert *x509.Certificate, reason string) (RotationResult, error) {
	if hostname == "" {
		return RotationResult{}, dErrors.New(dErrors.CodeInvalidInput, "hostname is required")
	}
	if newCert == nil {
		return RotationResult{}, dErrors.New(dErrors.CodeInvalidInput, "certificate is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := s.store.ActiveByHost(ctx, hostname)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return RotationResult{}, dErrors.Newf(dErrors.CodeNotFound, "no active pin for %s", hostname)
		}
		return RotationResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "load active pin")
	}

	old.IsActive = false
	if err := s.store.Put(ctx, old); err != nil {
		return RotationResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "retire outgoing pin")
	}

	fresh := PinMetadata{
		PinID:         uuid.NewString(),
		Hostname:      hostname,
		PinType:       PinTypeSHA256,
		PinValue:      ComputePin(newCert),
		IsActive:      true,
		RotationCount: old.RotationCount + 1,
		CreatedAt:     s.clock().UTC(),
	}
	if err := s.store.Put(ctx, fresh); err != nil {
		return RotationResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "persist new pin")
	}

	result := RotationResult{
		Hostname:  hostname,
		OldPinID:  old.PinID,
		OldPin:    old.PinValue,
		NewPinID:  fresh.PinID,
		NewPin:    fresh.PinValue,
		Changed:   old.PinValue != fresh.PinValue,
		Reason:    reason,
		RotatedAt: s.clock().UTC(),
	}

	s.logger.InfoContext(ctx, "certificate pin rotated",
		slog.String("hostname", hostname),
		slog.Bool("changed", result.Changed),
		slog.String("reason", reason))
	return result, nil
}

// PinSet returns the pins the live client must accept for a hostname:
// the active pin plus the most recently retired one as backup.
func (s *Service) PinSet(ctx context.Context, hostname string) ([]string, error) {
	if hostname == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "hostname is required")
	}

	all, err := s.store.ListByHost(ctx, hostname)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list pins")
	}

	var active, backup string
	for _, meta := range all {
		if meta.IsActive {
			active = meta.PinValue
		} else {
			// List is oldest first, so the last retired pin wins.
			backup = meta.PinValue
		}
	}
	if active == "" {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "no active pin for %s", hostname)
	}

	pins := []string{active}
	if backup != "" && backup != active {
		pins = append(pins, backup)
	}
	return pins, nil
}

// ListPins returns all pin generations for a hostname, oldest first.
func (s *Service) ListPins(ctx context.Context, hostname string) ([]PinMetadata, error) {
	if hostname == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "hostname is required")
	}
	metas, err := s.store.ListByHost(ctx, hostname)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list pins")
	}
	return metas, nil
}

// BreakTest performs a live pinned handshake against hostname:443. It is
// strictly diagnostic: any connection or verification failure is folded
// into a failed TestResult, never returned as an error.
func (s *Service) BreakTest(ctx context.Context, hostname string) (TestResult, error) {
	if hostname == "" {
		return TestResult{}, dErrors.New(dErrors.CodeInvalidInput, "hostname is required")
	}

	pins, err := s.PinSet(ctx, hostname)
	if err != nil {
		return TestResult{}, err
	}

	start := s.clock()
	result := TestResult{Hostname: hostname, TestedAt: start.UTC()}

	dialCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	matched, err := s.dialer.DialAndMatch(dialCtx, hostname, pins)
	result.Latency = s.clock().Sub(start)
	if err != nil {
		result.Error = err.Error()
		s.logger.WarnContext(ctx, "pin break test failed",
			slog.String("hostname", hostname), slog.String("error", err.Error()))
		return result, nil
	}

	result.Success = true
	result.MatchedPin = matched
	s.logger.InfoContext(ctx, "pin break test passed",
		slog.String("hostname", hostname), slog.Duration("latency", result.Latency))
	return result, nil
}

// RotationPlaybook returns the ordered operator steps for rolling a pin
// from oldPin to newPin across the device fleet.
func (s *Service) RotationPlaybook(hostname, oldPin, newPin string) []PlaybookStep {
	return []PlaybookStep{
		{Step: 1, Action: "stage_backup",
			Description: fmt.Sprintf("Ship %s as backup pin for %s alongside active %s; devices accept either.", newPin, hostname, oldPin)},
		{Step: 2, Action: "verify_rollout",
			Description: "Wait for the staged pin set to reach the device fleet; confirm via update telemetry before proceeding."},
		{Step: 3, Action: "deploy_certificate",
			Description: fmt.Sprintf("Deploy the new certificate on %s; both pin generations validate during the overlap window.", hostname)},
		{Step: 4, Action: "break_test",
			Description: fmt.Sprintf("Run a pin break test against %s and confirm the handshake matches %s.", hostname, newPin)},
		{Step: 5, Action: "promote",
			Description: fmt.Sprintf("Promote %s to the active pin; %s becomes the backup.", newPin, oldPin)},
		{Step: 6, Action: "retire_backup",
			Description: fmt.Sprintf("After the old certificate is fully withdrawn, drop %s from the pin set.", oldPin)},
	}
}
