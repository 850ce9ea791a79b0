package hazard

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"charak/internal/audit"
	"charak/internal/keys"
	dErrors "charak/pkg/domain-errors"
)

// recordedEvent captures audit calls without a real chain.
type recordedEvent struct {
	encounterID string
	event       audit.EventType
	meta        map[string]string
}

type fakeRecorder struct {
	events []recordedEvent
}

func (r *fakeRecorder) Log(_ context.Context, encounterID string, event audit.EventType, _ audit.Actor, meta map[string]string) error {
	r.events = append(r.events, recordedEvent{encounterID, event, meta})
	return nil
}

type SuiteSuite struct {
	suite.Suite
	keystore *keys.MemoryKeystore
	manager  *keys.Manager
	baseline *MemoryBaselineStore
	probe    *StaticProbe
	recorder *fakeRecorder
	hazards  *Suite
	ctx      context.Context
	now      time.Time
}

func TestHazardSuite(t *testing.T) {
	suite.Run(t, new(SuiteSuite))
}

func (s *SuiteSuite) SetupTest() {
	s.keystore = keys.NewMemoryKeystore()
	s.baseline = NewMemoryBaselineStore()
	s.probe = &StaticProbe{OS: "android-14", Biometric: 1}
	s.recorder = &fakeRecorder{}
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.ctx = context.Background()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.manager = keys.NewManager(s.keystore, keys.NewMemoryMetadataStore(), log,
		keys.WithManagerClock(func() time.Time { return s.now }))
	s.hazards = NewSuite(s.manager, s.keystore, s.baseline, s.probe, log,
		WithSuiteClock(func() time.Time { return s.now }),
		WithSuiteRecorder(s.recorder))
}

func (s *SuiteSuite) TestFirstRunCapturesBaseline() {
	report, err := s.hazards.RunChecks(s.ctx)
	s.Require().NoError(err)
	s.True(report.Healthy)

	base, err := s.baseline.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal("android-14", base.OSFingerprint)
	s.Equal(1, base.BiometricGeneration)
}

func (s *SuiteSuite) TestHealthySecondRun() {
	_, err := s.hazards.RunChecks(s.ctx)
	s.Require().NoError(err)

	_, err = s.manager.EnsureActiveKey(s.ctx, keys.PurposeChain)
	s.Require().NoError(err)

	report, err := s.hazards.RunChecks(s.ctx)
	s.Require().NoError(err)
	s.True(report.Healthy)
	s.Empty(report.Detected())
}

func (s *SuiteSuite) TestOSChangeDetected() {
	_, err := s.hazards.RunChecks(s.ctx)
	s.Require().NoError(err)

	s.probe.OS = "android-15"
	report, err := s.hazards.RunChecks(s.ctx)
	s.Require().NoError(err)
	s.False(report.Healthy)

	detected := report.Detected()
	s.Require().Len(detected, 1)
	s.Equal(KindOSChange, detected[0].Kind)
	s.Contains(detected[0].Details, "android-15")
}

func (s *SuiteSuite) TestBiometricResetDetected() {
	_, err := s.hazards.RunChecks(s.ctx)
	s.Require().NoError(err)

	s.probe.Biometric = 2
	report, err := s.hazards.RunChecks(s.ctx)
	s.Require().NoError(err)

	detected := report.Detected()
	s.Require().Len(detected, 1)
	s.Equal(KindBiometricReset, detected[0].Kind)
}

func (s *SuiteSuite) TestKeystoreClearedDetected() {
	_, err := s.hazards.RunChecks(s.ctx)
	s.Require().NoError(err)
	_, err = s.manager.EnsureActiveKey(s.ctx, keys.PurposeChain)
	s.Require().NoError(err)
	_, err = s.manager.EnsureActiveKey(s.ctx, keys.PurposeStorage)
	s.Require().NoError(err)

	s.keystore.Clear()

	report, err := s.hazards.RunChecks(s.ctx)
	s.Require().NoError(err)
	detected := report.Detected()
	s.Require().Len(detected, 1)
	s.Equal(KindKeystoreCleared, detected[0].Kind)
}

func (s *SuiteSuite) TestSingleKeyInvalidationDetected() {
	_, err := s.hazards.RunChecks(s.ctx)
	s.Require().NoError(err)
	chain, err := s.manager.EnsureActiveKey(s.ctx, keys.PurposeChain)
	s.Require().NoError(err)
	_, err = s.manager.EnsureActiveKey(s.ctx, keys.PurposeStorage)
	s.Require().NoError(err)

	s.Require().NoError(s.keystore.Delete(s.ctx, chain.Alias))

	report, err := s.hazards.RunChecks(s.ctx)
	s.Require().NoError(err)
	detected := report.Detected()
	s.Require().Len(detected, 1)
	s.Equal(KindKeyInvalidated, detected[0].Kind)
	s.Contains(detected[0].Details, chain.Alias)
}

func (s *SuiteSuite) TestRecoverRotatesAndRebaselines() {
	_, err := s.hazards.RunChecks(s.ctx)
	s.Require().NoError(err)
	chain, err := s.manager.EnsureActiveKey(s.ctx, keys.PurposeChain)
	s.Require().NoError(err)
	storage, err := s.manager.EnsureActiveKey(s.ctx, keys.PurposeStorage)
	s.Require().NoError(err)

	s.keystore.Clear()
	report, err := s.hazards.RunChecks(s.ctx)
	s.Require().NoError(err)
	s.Require().False(report.Healthy)

	result, err := s.hazards.Recover(s.ctx, report)
	s.Require().NoError(err)
	s.Equal([]string{"audit_chain", "storage"}, result.RotatedPurposes)

	// Both purposes have fresh active generations with live material.
	kid, material, err := s.manager.ActiveChainKey(s.ctx)
	s.Require().NoError(err)
	s.NotEqual(chain.KeyID, kid)
	s.Len(material, 32)

	sKid, _, err := s.manager.ActiveStorageKey(s.ctx)
	s.Require().NoError(err)
	s.NotEqual(storage.KeyID, sKid)

	// Old generations are retired, not erased.
	oldChain, err := s.manager.Metadata(s.ctx, chain.KeyID)
	s.Require().NoError(err)
	s.False(oldChain.IsActive)

	// Recovery is audited under the system chain.
	s.Require().Len(s.recorder.events, 1)
	s.Equal(audit.EventHazardRecovery, s.recorder.events[0].event)
	s.Equal(audit.SystemEncounterID, s.recorder.events[0].encounterID)
	s.Contains(s.recorder.events[0].meta["kinds"], string(KindKeystoreCleared))

	// A following run against the refreshed baseline is healthy.
	after, err := s.hazards.RunChecks(s.ctx)
	s.Require().NoError(err)
	s.True(after.Healthy)
}

func (s *SuiteSuite) TestRecoverOnHealthyReportOnlyRebaselines() {
	report, err := s.hazards.RunChecks(s.ctx)
	s.Require().NoError(err)

	result, err := s.hazards.Recover(s.ctx, report)
	s.Require().NoError(err)
	s.Empty(result.RotatedPurposes)
	s.Empty(s.recorder.events)
}

func (s *SuiteSuite) TestCorruptedKeyDetectedAsInvalidated() {
	_, err := s.hazards.RunChecks(s.ctx)
	s.Require().NoError(err)
	chain, err := s.manager.EnsureActiveKey(s.ctx, keys.PurposeChain)
	s.Require().NoError(err)

	// Replace the material under the alias; the metadata checksum no
	// longer matches.
	s.Require().NoError(s.keystore.Delete(s.ctx, chain.Alias))
	s.Require().NoError(s.keystore.Generate(s.ctx, chain.Alias, 32))

	report, err := s.hazards.RunChecks(s.ctx)
	s.Require().NoError(err)
	detected := report.Detected()
	s.Require().Len(detected, 1)
	s.Equal(KindKeyInvalidated, detected[0].Kind)
	s.Contains(detected[0].Details, "checksum mismatch")
}

func (s *SuiteSuite) TestRecoverRejectsUnknownKind() {
	report := Report{Checks: []Check{{Kind: Kind("EMP_PULSE"), Detected: true}}}
	_, err := s.hazards.Recover(s.ctx, report)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
}

func TestKindTraits(t *testing.T) {
	if got := KindKeystoreCleared.Severity(); got != SeverityCritical {
		t.Fatalf("keystore clear severity = %s", got)
	}
	if got := KindOSChange.Severity(); got != SeverityHigh {
		t.Fatalf("os change severity = %s", got)
	}
	if KindOSChange.RecoveryRequired() {
		t.Fatal("os change must not require key regeneration")
	}
	if !KindKeyInvalidated.RecoveryRequired() {
		t.Fatal("key invalidation must require key regeneration")
	}
	if Kind("EMP_PULSE").IsValid() {
		t.Fatal("unknown kind accepted")
	}
}
