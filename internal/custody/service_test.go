package custody

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"charak/internal/audit"
	dErrors "charak/pkg/domain-errors"
)

// recordedEvent captures one mirrored audit event.
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

func (f *fakeRecorder) byType(event audit.EventType) []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedEvent
	for _, e := range f.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type ServiceSuite struct {
	suite.Suite
	store    *MemoryMetadataStore
	vault    *MemoryVault
	trail    *MemoryAccessTrail
	recorder *fakeRecorder
	svc      *Service
	ctx      context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = NewMemoryMetadataStore()
	s.vault = NewMemoryVault()
	s.trail = NewMemoryAccessTrail()
	s.recorder = &fakeRecorder{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.svc = NewService(s.store, s.vault, s.trail, s.recorder, log)
	s.ctx = context.Background()
}

func (s *ServiceSuite) TestGenerateValidation() {
	s.Run("empty clinic id rejected", func() {
		_, err := s.svc.GenerateAndStoreClinicKey(s.ctx, "", KeyTypeECDSA, 256)
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
	})

	s.Run("unknown key type rejected", func() {
		_, err := s.svc.GenerateAndStoreClinicKey(s.ctx, "clinic-1", KeyType("DSA"), 1024)
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
	})

	s.Run("unsupported size rejected", func() {
		_, err := s.svc.GenerateAndStoreClinicKey(s.ctx, "clinic-1", KeyTypeRSA, 1024)
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestGenerateStoresSealedKey() {
	meta, err := s.svc.GenerateAndStoreClinicKey(s.ctx, "clinic-1", KeyTypeECDSA, 256)
	s.Require().NoError(err)

	s.Equal("clinic-1", meta.ClinicID)
	s.True(meta.IsActive)
	s.Equal(0, meta.RotationCount)
	s.NotEmpty(meta.Checksum)

	ok, err := s.vault.Contains(s.ctx, meta.KeyID)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *ServiceSuite) TestGenerateSecondActiveKeyConflicts() {
	_, err := s.svc.GenerateAndStoreClinicKey(s.ctx, "clinic-1", KeyTypeECDSA, 256)
	s.Require().NoError(err)

	_, err = s.svc.GenerateAndStoreClinicKey(s.ctx, "clinic-1", KeyTypeECDSA, 256)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestAccessRecordsTrailOnSuccess() {
	meta, err := s.svc.GenerateAndStoreClinicKey(s.ctx, "clinic-1", KeyTypeECDSA, 256)
	s.Require().NoError(err)

	signer, err := s.svc.AccessClinicKey(s.ctx, meta.KeyID, "ADMIN", OpDecrypt, "device loss recovery")
	s.Require().NoError(err)
	s.NotNil(signer.Public())

	entries, err := s.trail.List(s.ctx, meta.KeyID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.True(entries[0].Success)
	s.Equal(OpDecrypt, entries[0].Operation)
	s.Equal("device loss recovery", entries[0].Reason)

	got, err := s.svc.GetKeyMetadata(s.ctx, meta.KeyID)
	s.Require().NoError(err)
	s.Equal(int64(1), got.AccessCount)
}

func (s *ServiceSuite) TestAccessRecordsTrailOnFailure() {
	_, err := s.svc.AccessClinicKey(s.ctx, "no-such-key", "ADMIN", OpSign, "test")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))

	entries, err := s.trail.List(s.ctx, "no-such-key")
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.False(entries[0].Success)
	s.NotEmpty(entries[0].Error)
}

func (s *ServiceSuite) TestAccessLostMaterialIsHazard() {
	meta, err := s.svc.GenerateAndStoreClinicKey(s.ctx, "clinic-1", KeyTypeECDSA, 256)
	s.Require().NoError(err)
	s.vault.Drop(meta.KeyID)

	_, err = s.svc.AccessClinicKey(s.ctx, meta.KeyID, "ADMIN", OpDecrypt, "test")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeHazard))
}

func (s *ServiceSuite) TestRotateBacksUpAndDeactivates() {
	old, err := s.svc.GenerateAndStoreClinicKey(s.ctx, "clinic-1", KeyTypeRSA, 2048)
	s.Require().NoError(err)

	result, err := s.svc.RotateClinicKey(s.ctx, "clinic-1", old.KeyID, "scheduled")
	s.Require().NoError(err)

	s.Equal(old.KeyID, result.OldKeyID)
	s.NotEqual(old.KeyID, result.NewKeyID)
	s.NotEmpty(result.BackupPath)

	// Outgoing key retired, successor active with bumped count.
	oldMeta, err := s.svc.GetKeyMetadata(s.ctx, old.KeyID)
	s.Require().NoError(err)
	s.False(oldMeta.IsActive)

	newMeta, err := s.svc.GetKeyMetadata(s.ctx, result.NewKeyID)
	s.Require().NoError(err)
	s.True(newMeta.IsActive)
	s.Equal(1, newMeta.RotationCount)

	// Backup captured the key while still active.
	backups := s.store.Backups()
	s.Require().Len(backups, 1)
	s.Equal(old.KeyID, backups[0].KeyID)
	s.True(backups[0].IsActive)

	rotations := s.recorder.byType(audit.EventKeyRotation)
	s.Require().Len(rotations, 1)
	s.Equal("clinic-1", rotations[0].Meta["clinic_id"])
}

func (s *ServiceSuite) TestRotateWithoutActiveKeyFails() {
	_, err := s.svc.RotateClinicKey(s.ctx, "clinic-never-provisioned", "", "scheduled")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestRotateStaleCurrentKeyIDConflicts() {
	_, err := s.svc.GenerateAndStoreClinicKey(s.ctx, "clinic-1", KeyTypeECDSA, 256)
	s.Require().NoError(err)

	_, err = s.svc.RotateClinicKey(s.ctx, "clinic-1", "some-old-id", "scheduled")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestRecoveryWithZeroKeysSucceedsTrivially() {
	result, err := s.svc.PerformRecoveryProcedure(s.ctx, "clinic-never-provisioned", "device loss")
	s.Require().NoError(err)
	s.Equal(0, result.RecoveredKeys)
	s.Equal(0, result.RegeneratedKeys)

	recoveries := s.recorder.byType(audit.EventHazardRecovery)
	s.Require().Len(recoveries, 1)
	s.Equal("0", recoveries[0].Meta["recovered"])
}

func (s *ServiceSuite) TestRecoveryCountsIntactKeys() {
	meta, err := s.svc.GenerateAndStoreClinicKey(s.ctx, "clinic-1", KeyTypeECDSA, 256)
	s.Require().NoError(err)

	result, err := s.svc.PerformRecoveryProcedure(s.ctx, "clinic-1", "routine check")
	s.Require().NoError(err)
	s.Equal(1, result.RecoveredKeys)
	s.Equal(0, result.RegeneratedKeys)

	// The key stays active and usable.
	got, err := s.svc.GetKeyMetadata(s.ctx, meta.KeyID)
	s.Require().NoError(err)
	s.True(got.IsActive)
}

func (s *ServiceSuite) TestRecoveryReplacesLostActiveKey() {
	meta, err := s.svc.GenerateAndStoreClinicKey(s.ctx, "clinic-1", KeyTypeECDSA, 256)
	s.Require().NoError(err)
	s.vault.Drop(meta.KeyID)

	result, err := s.svc.PerformRecoveryProcedure(s.ctx, "clinic-1", "vault wipe")
	s.Require().NoError(err)
	s.Equal(0, result.RecoveredKeys)
	s.Equal(1, result.RegeneratedKeys)

	lost, err := s.svc.GetKeyMetadata(s.ctx, meta.KeyID)
	s.Require().NoError(err)
	s.False(lost.IsActive)

	keys, err := s.svc.ListClinicKeys(s.ctx, "clinic-1")
	s.Require().NoError(err)
	s.Require().Len(keys, 2)

	// The replacement is active and has fresh material.
	replacement := keys[1]
	s.True(replacement.IsActive)
	ok, err := s.vault.Contains(s.ctx, replacement.KeyID)
	s.Require().NoError(err)
	s.True(ok)
}

func TestFileVaultRoundTrip(t *testing.T) {
	ctx := context.Background()
	vault, err := NewFileVault(t.TempDir(), []byte("master-secret-material"))
	if err != nil {
		t.Fatalf("new file vault: %v", err)
	}

	der := []byte("not-really-a-key-but-opaque-bytes")
	if err := vault.Store(ctx, "key-1", der); err != nil {
		t.Fatalf("store: %v", err)
	}
	got, err := vault.Load(ctx, "key-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != string(der) {
		t.Fatalf("round trip mismatch: got %q", got)
	}

	// Storing over an existing id must conflict; aliases are immutable.
	if err := vault.Store(ctx, "key-1", der); err == nil {
		t.Fatal("expected conflict storing over existing key")
	}
}

func TestFileAccessTrailSurvivesMalformedLines(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	trail := NewFileAccessTrail(dir)

	if err := trail.Record(ctx, AccessEntry{Timestamp: time.Now(), KeyID: "k1", Actor: "ADMIN", Operation: OpSign, Success: true}); err != nil {
		t.Fatalf("record: %v", err)
	}
	// Corrupt line injected between two valid ones.
	appendRawTrailLine(t, dir, "{not json")
	if err := trail.Record(ctx, AccessEntry{Timestamp: time.Now(), KeyID: "k1", Actor: "ADMIN", Operation: OpSign, Success: false}); err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, err := trail.List(ctx, "k1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}
