// Package custody manages clinic-held asymmetric keys used to encrypt
// device-loss recovery bundles. Private keys are sealed at rest in a
// vault; every access attempt lands in a dedicated access trail kept
// outside the hash-chained audit log.
package custody

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"charak/internal/audit"
	"charak/internal/custody/metrics"
	dErrors "charak/pkg/domain-errors"
	"charak/pkg/sentinel"
)

var tracer = otel.Tracer("charak/internal/custody")

// Clock abstracts time for tests.
type Clock func() time.Time

// Recorder appends to the tamper-evident audit log. Rotation and
// recovery are mirrored there in addition to the access trail.
type Recorder interface {
	Log(ctx context.Context, encounterID string, event audit.EventType, actor audit.Actor, meta map[string]string) error
}

// DefaultKeyTTL is how long a clinic key stays active before scheduled
// rotation is due.
const DefaultKeyTTL = 365 * 24 * time.Hour

// Service implements clinic key custody: generation, audited access,
// rotation with metadata backup, and loss recovery.
type Service struct {
	store    MetadataStore
	vault    Vault
	trail    AccessTrail
	recorder Recorder
	logger   *slog.Logger
	metrics  *metrics.Metrics
	clock    Clock
	keyTTL   time.Duration

	// rotateMu excludes concurrent rotation and recovery, which both
	// walk the active-key invariant.
	rotateMu sync.Mutex
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

// WithKeyTTL overrides the active lifetime of generated keys.
func WithKeyTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.keyTTL = ttl
		}
	}
}

// NewService wires the custody service. A nil recorder skips main-chain
// mirroring; the access trail is always written.
func NewService(store MetadataStore, vault Vault, trail AccessTrail, recorder Recorder, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		vault:    vault,
		trail:    trail,
		recorder: recorder,
		logger:   logger,
		clock:    time.Now,
		keyTTL:   DefaultKeyTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// GenerateAndStoreClinicKey provisions the first key for a clinic. A
// clinic with an active key must rotate instead; implicit replacement
// would silently orphan ciphertext.
func (s *Service) GenerateAndStoreClinicKey(ctx context.Context, clinicID string, keyType KeyType, keySize int) (KeyMetadata, error) {
	if clinicID == "" {
		return KeyMetadata{}, dErrors.New(dErrors.CodeInvalidInput, "clinic id is required")
	}
	if err := ValidateKeySpec(keyType, keySize); err != nil {
		return KeyMetadata{}, err
	}

	s.rotateMu.Lock()
	defer s.rotateMu.Unlock()

	_, err := s.store.ActiveByClinic(ctx, clinicID)
	if err == nil {
		return KeyMetadata{}, dErrors.Newf(dErrors.CodeConflict, "clinic %s already has an active key; rotate instead", clinicID)
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return KeyMetadata{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "load active clinic key")
	}

	meta, err := s.provision(ctx, clinicID, keyType, keySize, 0)
	if err != nil {
		return KeyMetadata{}, err
	}

	s.metrics.IncrementGenerated(keyType.String())
	s.logger.InfoContext(ctx, "clinic key generated",
		slog.String("clinic_id", clinicID),
		slog.String("key_id", meta.KeyID),
		slog.String("key_type", keyType.String()))
	return meta, nil
}

// AccessClinicKey unseals and returns a custodied private key. Every
// attempt, including failures, is recorded in the access trail with
// actor, operation and reason.
func (s *Service) AccessClinicKey(ctx context.Context, keyID, actor string, operation AccessOperation, reason string) (crypto.Signer, error) {
	if keyID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "key id is required")
	}
	if actor == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "actor is required")
	}
	ctx, span := tracer.Start(ctx, "custody.access")
	defer span.End()
	span.SetAttributes(
		attribute.String("custody.key_id", keyID),
		attribute.String("custody.operation", string(operation)),
	)

	signer, meta, err := s.access(ctx, keyID)

	entry := AccessEntry{
		Timestamp: s.clock().UTC(),
		KeyID:     keyID,
		ClinicID:  meta.ClinicID,
		Actor:     actor,
		Operation: operation,
		Reason:    reason,
		Success:   err == nil,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if recErr := s.trail.Record(ctx, entry); recErr != nil {
		// The access already happened; an unrecordable trail is its own
		// reportable failure but must not mask the primary outcome.
		s.logger.ErrorContext(ctx, "access trail write failed",
			slog.String("key_id", keyID), slog.String("error", recErr.Error()))
	}
	s.metrics.IncrementAccess(err == nil)

	if err != nil {
		return nil, err
	}

	meta.AccessCount++
	if putErr := s.store.Put(ctx, meta); putErr != nil {
		s.logger.WarnContext(ctx, "clinic key access count update failed",
			slog.String("key_id", keyID), slog.String("error", putErr.Error()))
	}
	return signer, nil
}

func (s *Service) access(ctx context.Context, keyID string) (crypto.Signer, KeyMetadata, error) {
	meta, err := s.store.Get(ctx, keyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, KeyMetadata{}, dErrors.Newf(dErrors.CodeNotFound, "clinic key %q not found", keyID)
		}
		return nil, KeyMetadata{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "load clinic key metadata")
	}

	der, err := s.vault.Load(ctx, keyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrCorrupted) {
			return nil, meta, dErrors.Newf(dErrors.CodeHazard, "clinic key %q material unrecoverable", keyID)
		}
		return nil, meta, dErrors.Wrap(err, dErrors.CodeUnavailable, "load clinic key material")
	}

	sum := sha256.Sum256(der)
	if meta.Checksum != "" && meta.Checksum != hex.EncodeToString(sum[:]) {
		return nil, meta, dErrors.Newf(dErrors.CodeIntegrity, "clinic key %q failed checksum", keyID)
	}

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, meta, dErrors.Wrap(err, dErrors.CodeIntegrity, "parse clinic key")
	}
	signer, ok := parsed.(crypto.Signer)
	if !ok {
		return nil, meta, dErrors.Newf(dErrors.CodeIntegrity, "clinic key %q is not a signer", keyID)
	}
	return signer, meta, nil
}

// RotateClinicKey replaces a clinic's active key. The outgoing record is
// backed up with a timestamp before deactivation so the rotation can be
// rolled back, then a fresh key of the same type and size is generated.
func (s *Service) RotateClinicKey(ctx context.Context, clinicID, currentKeyID, reason string) (RotationResult, error) {
	if clinicID == "" {
		return RotationResult{}, dErrors.New(dErrors.CodeInvalidInput, "clinic id is required")
	}

	s.rotateMu.Lock()
	defer s.rotateMu.Unlock()

	old, err := s.store.ActiveByClinic(ctx, clinicID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return RotationResult{}, dErrors.Newf(dErrors.CodeNotFound, "no active key for clinic %s", clinicID)
		}
		return RotationResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "load active clinic key")
	}
	if currentKeyID != "" && old.KeyID != currentKeyID {
		return RotationResult{}, dErrors.Newf(dErrors.CodeConflict, "active key for clinic %s is %s, not %s", clinicID, old.KeyID, currentKeyID)
	}

	backupPath, err := s.store.Backup(ctx, old)
	if err != nil {
		return RotationResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "back up outgoing key metadata")
	}

	old.IsActive = false
	if err := s.store.Put(ctx, old); err != nil {
		return RotationResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "deactivate outgoing clinic key")
	}

	fresh, err := s.provision(ctx, clinicID, old.KeyType, old.KeySize, old.RotationCount+1)
	if err != nil {
		return RotationResult{}, err
	}

	result := RotationResult{
		ClinicID:   clinicID,
		OldKeyID:   old.KeyID,
		NewKeyID:   fresh.KeyID,
		BackupPath: backupPath,
		Reason:     reason,
		RotatedAt:  s.clock().UTC(),
	}

	s.metrics.IncrementRotation()
	s.logger.InfoContext(ctx, "clinic key rotated",
		slog.String("clinic_id", clinicID),
		slog.String("old_key_id", old.KeyID),
		slog.String("new_key_id", fresh.KeyID),
		slog.String("reason", reason))
	s.audit(ctx, audit.EventKeyRotation, map[string]string{
		"clinic_id":  clinicID,
		"old_key_id": old.KeyID,
		"new_key_id": fresh.KeyID,
		"reason":     reason,
	})
	return result, nil
}

// PerformRecoveryProcedure rebuilds a clinic's key custody after
// suspected loss. Keys whose sealed material is intact count as
// recovered; a lost active key gets a regenerated successor. A clinic
// with no keys at all recovers trivially with zero counts; never having
// been provisioned is not an error.
func (s *Service) PerformRecoveryProcedure(ctx context.Context, clinicID, reason string) (RecoveryResult, error) {
	if clinicID == "" {
		return RecoveryResult{}, dErrors.New(dErrors.CodeInvalidInput, "clinic id is required")
	}

	s.rotateMu.Lock()
	defer s.rotateMu.Unlock()

	metas, err := s.store.ListByClinic(ctx, clinicID)
	if err != nil {
		return RecoveryResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "list clinic keys")
	}

	result := RecoveryResult{ClinicID: clinicID, Reason: reason}
	for _, meta := range metas {
		intact, err := s.vault.Contains(ctx, meta.KeyID)
		if err != nil {
			return result, dErrors.Wrap(err, dErrors.CodeUnavailable, "probe vault")
		}
		if intact {
			result.RecoveredKeys++
			continue
		}

		// Material is gone. An asymmetric private key cannot be rebuilt,
		// so the record is retired; only the active key earns a
		// regenerated successor.
		wasActive := meta.IsActive
		meta.IsActive = false
		if err := s.store.Put(ctx, meta); err != nil {
			return result, dErrors.Wrap(err, dErrors.CodeUnavailable, "retire lost clinic key")
		}
		if wasActive {
			fresh, err := s.provision(ctx, clinicID, meta.KeyType, meta.KeySize, meta.RotationCount+1)
			if err != nil {
				return result, err
			}
			result.RegeneratedKeys++
			s.logger.WarnContext(ctx, "lost clinic key replaced",
				slog.String("clinic_id", clinicID),
				slog.String("lost_key_id", meta.KeyID),
				slog.String("new_key_id", fresh.KeyID))
		}
	}
	result.CompletedAt = s.clock().UTC()

	s.metrics.IncrementRecovery()
	s.audit(ctx, audit.EventHazardRecovery, map[string]string{
		"clinic_id":   clinicID,
		"reason":      reason,
		"recovered":   strconv.Itoa(result.RecoveredKeys),
		"regenerated": strconv.Itoa(result.RegeneratedKeys),
	})
	s.logger.InfoContext(ctx, "clinic key recovery complete",
		slog.String("clinic_id", clinicID),
		slog.Int("recovered", result.RecoveredKeys),
		slog.Int("regenerated", result.RegeneratedKeys))
	return result, nil
}

// GetKeyMetadata returns the stored record for one clinic key.
func (s *Service) GetKeyMetadata(ctx context.Context, keyID string) (KeyMetadata, error) {
	if keyID == "" {
		return KeyMetadata{}, dErrors.New(dErrors.CodeInvalidInput, "key id is required")
	}
	meta, err := s.store.Get(ctx, keyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return KeyMetadata{}, dErrors.Newf(dErrors.CodeNotFound, "clinic key %q not found", keyID)
		}
		return KeyMetadata{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "load clinic key metadata")
	}
	return meta, nil
}

// ListClinicKeys returns all key generations for a clinic, oldest first.
func (s *Service) ListClinicKeys(ctx context.Context, clinicID string) ([]KeyMetadata, error) {
	if clinicID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "clinic id is required")
	}
	metas, err := s.store.ListByClinic(ctx, clinicID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list clinic keys")
	}
	return metas, nil
}

// AccessHistory returns the access trail for one key.
func (s *Service) AccessHistory(ctx context.Context, keyID string) ([]AccessEntry, error) {
	entries, err := s.trail.List(ctx, keyID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "read access trail")
	}
	return entries, nil
}

// provision generates one key pair and stores it sealed. Caller holds
// rotateMu.
func (s *Service) provision(ctx context.Context, clinicID string, keyType KeyType, keySize, rotationCount int) (KeyMetadata, error) {
	der, err := generateDER(keyType, keySize)
	if err != nil {
		return KeyMetadata{}, dErrors.Wrap(err, dErrors.CodeInternal, "generate clinic key pair")
	}

	keyID := uuid.NewString()
	if err := s.vault.Store(ctx, keyID, der); err != nil {
		return KeyMetadata{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "seal clinic key")
	}

	now := s.clock().UTC()
	sum := sha256.Sum256(der)
	meta := KeyMetadata{
		KeyID:         keyID,
		ClinicID:      clinicID,
		KeyType:       keyType,
		KeySize:       keySize,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.keyTTL),
		IsActive:      true,
		RotationCount: rotationCount,
		VaultLocation: "vault:" + keyID,
		Checksum:      hex.EncodeToString(sum[:]),
	}
	if err := s.store.Put(ctx, meta); err != nil {
		// Roll the vault write back so no orphaned material lingers.
		if delErr := s.vault.Delete(ctx, keyID); delErr != nil {
			s.logger.ErrorContext(ctx, "orphaned vault entry after failed metadata write",
				slog.String("key_id", keyID), slog.String("error", delErr.Error()))
		}
		return KeyMetadata{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "persist clinic key metadata")
	}
	return meta, nil
}

// audit mirrors a custody lifecycle event into the hash chain. Failures
// are reportable but never roll back the key operation.
func (s *Service) audit(ctx context.Context, event audit.EventType, meta map[string]string) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Log(ctx, audit.SystemEncounterID, event, audit.ActorAdmin, meta); err != nil {
		s.logger.WarnContext(ctx, "custody event not audited",
			slog.String("event", string(event)), slog.String("error", err.Error()))
	}
}

func generateDER(keyType KeyType, keySize int) ([]byte, error) {
	switch keyType {
	case KeyTypeRSA:
		priv, err := rsa.GenerateKey(rand.Reader, keySize)
		if err != nil {
			return nil, err
		}
		return x509.MarshalPKCS8PrivateKey(priv)
	case KeyTypeECDSA:
		priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, err
		}
		return x509.MarshalPKCS8PrivateKey(priv)
	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown key type %q", keyType)
	}
}
