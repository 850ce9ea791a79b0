// Package hazard detects platform-level disruptions that can invalidate
// key material: OS upgrades, keystore resets, biometric re-enrollment and
// single-key invalidation. Detections are audited and, where possible,
// recovered by rotating the affected keys.
package hazard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"time"

	"charak/internal/audit"
	"charak/internal/keys"
	"charak/internal/keys/metrics"
	dErrors "charak/pkg/domain-errors"
	"charak/pkg/sentinel"
)

// Kind classifies a hazard.
type Kind string

const (
	KindOSChange        Kind = "OS_CHANGE"
	KindKeystoreCleared Kind = "KEYSTORE_CLEARED"
	KindBiometricReset  Kind = "BIOMETRIC_RESET"
	KindKeyInvalidated  Kind = "KEY_INVALIDATED"
)

// Severity ranks how badly a hazard compromises key material.
type Severity string

const (
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

var kindTraits = map[Kind]struct {
	severity         Severity
	recoveryRequired bool
}{
	KindOSChange:        {SeverityHigh, false},
	KindKeystoreCleared: {SeverityCritical, true},
	KindBiometricReset:  {SeverityHigh, true},
	KindKeyInvalidated:  {SeverityCritical, true},
}

func (k Kind) IsValid() bool { _, ok := kindTraits[k]; return ok }

// Severity returns the kind's fixed severity.
func (k Kind) Severity() Severity { return kindTraits[k].severity }

// RecoveryRequired reports whether the kind needs key regeneration. An
// OS change only moves the baseline.
func (k Kind) RecoveryRequired() bool { return kindTraits[k].recoveryRequired }

// Check is the outcome of probing for one hazard kind.
type Check struct {
	Kind             Kind     `json:"kind"`
	Severity         Severity `json:"severity"`
	RecoveryRequired bool     `json:"recovery_required"`
	Detected         bool     `json:"detected"`
	Details          string   `json:"details,omitempty"`
}

func newCheck(kind Kind) Check {
	return Check{Kind: kind, Severity: kind.Severity(), RecoveryRequired: kind.RecoveryRequired()}
}

// Report aggregates one full suite run.
type Report struct {
	Healthy   bool      `json:"healthy"`
	Checks    []Check   `json:"checks"`
	CheckedAt time.Time `json:"checked_at"`
}

// Detected returns the detected checks only.
func (r Report) Detected() []Check {
	var out []Check
	for _, c := range r.Checks {
		if c.Detected {
			out = append(out, c)
		}
	}
	return out
}

// RecoveryResult reports what a recovery run rotated.
type RecoveryResult struct {
	RotatedPurposes []string  `json:"rotated_purposes"`
	RebaselinedAt   time.Time `json:"rebaselined_at"`
}

// Probe reads the live platform state compared against the baseline.
type Probe interface {
	OSFingerprint(ctx context.Context) (string, error)
	BiometricGeneration(ctx context.Context) (int, error)
}

// StaticProbe is a Probe with fixed values, fed from configuration or a
// device agent. The zero OSFingerprint falls back to the runtime build
// target.
type StaticProbe struct {
	OS        string
	Biometric int
}

func (p StaticProbe) OSFingerprint(context.Context) (string, error) {
	if p.OS != "" {
		return p.OS, nil
	}
	return runtime.GOOS + "/" + runtime.GOARCH, nil
}

func (p StaticProbe) BiometricGeneration(context.Context) (int, error) {
	return p.Biometric, nil
}

// AuditRecorder receives hazard events for the hash chain.
type AuditRecorder interface {
	Log(ctx context.Context, encounterID string, event audit.EventType, actor audit.Actor, meta map[string]string) error
}

// Suite runs the hazard checks and drives recovery.
type Suite struct {
	manager  *keys.Manager
	keystore keys.Keystore
	baseline BaselineStore
	probe    Probe
	recorder AuditRecorder
	logger   *slog.Logger
	metrics  *metrics.Metrics
	clock    keys.Clock
}

// SuiteOption configures a Suite instance.
type SuiteOption func(*Suite)

// WithSuiteClock sets the clock used for report timestamps.
func WithSuiteClock(clock keys.Clock) SuiteOption {
	return func(s *Suite) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithSuiteMetrics attaches hazard metrics.
func WithSuiteMetrics(m *metrics.Metrics) SuiteOption {
	return func(s *Suite) {
		s.metrics = m
	}
}

// WithSuiteRecorder attaches the audit logger.
func WithSuiteRecorder(r AuditRecorder) SuiteOption {
	return func(s *Suite) {
		s.recorder = r
	}
}

func NewSuite(manager *keys.Manager, keystore keys.Keystore, baseline BaselineStore, probe Probe, logger *slog.Logger, opts ...SuiteOption) *Suite {
	s := &Suite{
		manager:  manager,
		keystore: keystore,
		baseline: baseline,
		probe:    probe,
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

// RunChecks probes for every hazard kind. The first run captures the
// baseline and reports healthy; there is nothing to compare against yet.
func (s *Suite) RunChecks(ctx context.Context) (Report, error) {
	now := s.clock().UTC()

	osNow, err := s.probe.OSFingerprint(ctx)
	if err != nil {
		return Report{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "probe os fingerprint")
	}
	bioNow, err := s.probe.BiometricGeneration(ctx)
	if err != nil {
		return Report{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "probe biometric generation")
	}

	base, err := s.baseline.Load(ctx)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return Report{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "load hazard baseline")
		}
		fresh := Baseline{OSFingerprint: osNow, BiometricGeneration: bioNow, CapturedAt: now}
		if err := s.baseline.Save(ctx, fresh); err != nil {
			return Report{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "capture hazard baseline")
		}
		s.logger.InfoContext(ctx, "hazard baseline captured", "os", osNow, "biometric_generation", bioNow)
		return Report{Healthy: true, CheckedAt: now, Checks: []Check{
			newCheck(KindOSChange), newCheck(KindKeystoreCleared), newCheck(KindBiometricReset), newCheck(KindKeyInvalidated),
		}}, nil
	}

	report := Report{Healthy: true, CheckedAt: now}

	osCheck := newCheck(KindOSChange)
	if osNow != base.OSFingerprint {
		osCheck.Detected = true
		osCheck.Details = fmt.Sprintf("os changed from %q to %q", base.OSFingerprint, osNow)
	}
	report.Checks = append(report.Checks, osCheck)

	bioCheck := newCheck(KindBiometricReset)
	if bioNow != base.BiometricGeneration {
		bioCheck.Detected = true
		bioCheck.Details = fmt.Sprintf("biometric generation moved from %d to %d", base.BiometricGeneration, bioNow)
	}
	report.Checks = append(report.Checks, bioCheck)

	clearedCheck, invalidCheck, err := s.checkKeystore(ctx)
	if err != nil {
		return Report{}, err
	}
	report.Checks = append(report.Checks, clearedCheck, invalidCheck)

	for _, c := range report.Checks {
		if c.Detected {
			report.Healthy = false
			s.metrics.IncrementHazard(string(c.Kind))
			s.logger.WarnContext(ctx, "keystore hazard detected", "kind", string(c.Kind), "details", c.Details)
		}
	}
	return report, nil
}

// checkKeystore cross-checks active metadata against stored material.
// All active aliases missing means the keystore was cleared; some missing
// or failing their checksum means individual keys were invalidated.
// Retired generations are not probed; losing their material after a
// hazard is expected decay and the sweep reclaims them.
func (s *Suite) checkKeystore(ctx context.Context) (cleared, invalidated Check, err error) {
	cleared = newCheck(KindKeystoreCleared)
	invalidated = newCheck(KindKeyInvalidated)

	metas, err := s.manager.List(ctx, "")
	if err != nil {
		return cleared, invalidated, err
	}

	var active, missing, corrupted []string
	for _, meta := range metas {
		if !meta.IsActive {
			continue
		}
		active = append(active, meta.Alias)
		exists, err := s.keystore.Contains(ctx, meta.Alias)
		if err != nil {
			return cleared, invalidated, dErrors.Wrap(err, dErrors.CodeUnavailable, "probe keystore alias")
		}
		if !exists {
			missing = append(missing, meta.Alias)
			continue
		}
		intact, err := s.manager.VerifyIntegrity(ctx, meta.KeyID)
		if err != nil {
			return cleared, invalidated, err
		}
		if !intact {
			corrupted = append(corrupted, meta.Alias)
		}
	}
	if len(active) == 0 {
		return cleared, invalidated, nil
	}

	if len(missing) == len(active) {
		cleared.Detected = true
		cleared.Details = fmt.Sprintf("all %d active aliases missing from keystore", len(active))
		return cleared, invalidated, nil
	}
	if len(missing) > 0 || len(corrupted) > 0 {
		invalidated.Detected = true
		var parts []string
		if len(missing) > 0 {
			parts = append(parts, "missing: "+strings.Join(missing, ", "))
		}
		if len(corrupted) > 0 {
			parts = append(parts, "checksum mismatch: "+strings.Join(corrupted, ", "))
		}
		invalidated.Details = strings.Join(parts, "; ")
	}
	return cleared, invalidated, nil
}

// Recover rotates the keys affected by the detected hazards and moves the
// baseline to the current platform state. Safe to call with a healthy
// report; it only re-baselines.
func (s *Suite) Recover(ctx context.Context, report Report) (RecoveryResult, error) {
	now := s.clock().UTC()
	detected := report.Detected()

	needRotation := map[keys.Purpose]bool{}
	for _, c := range detected {
		if !c.Kind.IsValid() {
			return RecoveryResult{}, dErrors.Newf(dErrors.CodeInvalidInput, "unknown hazard kind %q", c.Kind)
		}
		if c.Kind.RecoveryRequired() {
			needRotation[keys.PurposeChain] = true
			needRotation[keys.PurposeStorage] = true
		}
	}

	var rotated []string
	for purpose := range needRotation {
		metas, err := s.manager.List(ctx, purpose)
		if err != nil {
			return RecoveryResult{}, err
		}
		hasActive := false
		for _, meta := range metas {
			if meta.IsActive {
				hasActive = true
				break
			}
		}
		if hasActive {
			if _, err := s.manager.Rotate(ctx, purpose, keys.RotationHazard); err != nil {
				return RecoveryResult{}, err
			}
		} else if _, err := s.manager.EnsureActiveKey(ctx, purpose); err != nil {
			return RecoveryResult{}, err
		}
		rotated = append(rotated, purpose.String())
	}
	sort.Strings(rotated)

	osNow, err := s.probe.OSFingerprint(ctx)
	if err != nil {
		return RecoveryResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "probe os fingerprint")
	}
	bioNow, err := s.probe.BiometricGeneration(ctx)
	if err != nil {
		return RecoveryResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "probe biometric generation")
	}
	if err := s.baseline.Save(ctx, Baseline{OSFingerprint: osNow, BiometricGeneration: bioNow, CapturedAt: now}); err != nil {
		return RecoveryResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "save hazard baseline")
	}

	if len(detected) > 0 {
		s.metrics.IncrementHazardRecovery()
		if s.recorder != nil {
			kinds := make([]string, 0, len(detected))
			for _, c := range detected {
				kinds = append(kinds, string(c.Kind))
			}
			err := s.recorder.Log(ctx, audit.SystemEncounterID, audit.EventHazardRecovery, audit.ActorApp, map[string]string{
				"kinds":   strings.Join(kinds, ","),
				"rotated": strings.Join(rotated, ","),
			})
			if err != nil {
				s.logger.ErrorContext(ctx, "hazard recovery audit event failed", "error", err)
			}
		}
		s.logger.InfoContext(ctx, "hazard recovery completed", "rotated", rotated)
	}
	return RecoveryResult{RotatedPurposes: rotated, RebaselinedAt: now}, nil
}
