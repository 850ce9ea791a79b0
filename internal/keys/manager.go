package keys

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"charak/internal/audit"
	"charak/internal/keys/metrics"
	dErrors "charak/pkg/domain-errors"
	"charak/pkg/sentinel"
)

var tracer = otel.Tracer("charak/internal/keys")

// Clock is an injectable time source. Defaults to time.Now.
type Clock func() time.Time

// Policy holds the rotation thresholds. Ages follow the retention policy:
// 180 days for storage keys, 90 days for chain HMAC keys.
type Policy struct {
	ChainKeyMaxAge   time.Duration
	StorageKeyMaxAge time.Duration
	MaxAccessCount   int64
	KeySize          int
	// RetiredRetention is how long a deactivated key stays resolvable
	// after its expiry before the sweep removes it.
	RetiredRetention time.Duration
}

// DefaultPolicy returns the production thresholds.
func DefaultPolicy() Policy {
	return Policy{
		ChainKeyMaxAge:   90 * 24 * time.Hour,
		StorageKeyMaxAge: 180 * 24 * time.Hour,
		MaxAccessCount:   100_000,
		KeySize:          32,
		RetiredRetention: 365 * 24 * time.Hour,
	}
}

func (p Policy) maxAge(purpose Purpose) time.Duration {
	if purpose == PurposeStorage {
		return p.StorageKeyMaxAge
	}
	return p.ChainKeyMaxAge
}

// AuditRecorder receives lifecycle events for the hash chain. Satisfied
// by the audit logger; attached after construction because the logger
// itself needs this manager as its key provider.
type AuditRecorder interface {
	Log(ctx context.Context, encounterID string, event audit.EventType, actor audit.Actor, meta map[string]string) error
}

// RolloverRecorder persists chain-boundary markers on chain key rotation.
type RolloverRecorder interface {
	RecordRollover(ctx context.Context, newKeyID, terminalHash, reason string) (audit.ChainMarker, error)
}

// Manager owns the key lifecycle: provisioning, access, rotation and
// retention of HMAC chain keys and storage keys. Key material lives in
// the keystore; the manager only ever handles it in memory.
type Manager struct {
	keystore Keystore
	store    MetadataStore
	policy   Policy
	clock    Clock
	logger   *slog.Logger
	metrics  *metrics.Metrics

	recorder AuditRecorder
	rollover RolloverRecorder

	// rotateMu excludes concurrent rotation; provisioning stampedes are
	// collapsed separately by flight.
	rotateMu sync.Mutex
	flight   singleflight.Group
}

// ManagerOption configures a Manager instance.
type ManagerOption func(*Manager)

// WithManagerClock sets the clock used for ages and expiries.
func WithManagerClock(clock Clock) ManagerOption {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithManagerPolicy overrides the rotation policy.
func WithManagerPolicy(policy Policy) ManagerOption {
	return func(m *Manager) {
		m.policy = policy
	}
}

// WithManagerMetrics attaches lifecycle metrics.
func WithManagerMetrics(mm *metrics.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = mm
	}
}

func NewManager(keystore Keystore, store MetadataStore, logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		keystore: keystore,
		store:    store,
		policy:   DefaultPolicy(),
		clock:    time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// AttachAudit wires the audit logger and rollover recorder. Called once
// during startup, after the audit logger has been built on top of this
// manager.
func (m *Manager) AttachAudit(recorder AuditRecorder, rollover RolloverRecorder) {
	m.recorder = recorder
	m.rollover = rollover
}

// EnsureActiveKey returns the active key metadata for purpose,
// provisioning generation one if none exists. Concurrent callers share a
// single provisioning flight.
func (m *Manager) EnsureActiveKey(ctx context.Context, purpose Purpose) (Metadata, error) {
	if !purpose.IsValid() {
		return Metadata{}, dErrors.Newf(dErrors.CodeInvalidInput, "unknown key purpose %q", purpose)
	}

	meta, err := m.store.Active(ctx, purpose)
	if err == nil {
		return meta, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return Metadata{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "load active key metadata")
	}

	v, err, _ := m.flight.Do(string(purpose), func() (any, error) {
		// Re-check under the flight: the winner may have provisioned
		// while we queued.
		if meta, err := m.store.Active(ctx, purpose); err == nil {
			return meta, nil
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return Metadata{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "load active key metadata")
		}
		meta, err := m.provision(ctx, purpose, 0)
		if err != nil {
			return Metadata{}, err
		}
		m.metrics.IncrementProvisioned(purpose.String())
		m.logger.InfoContext(ctx, "key provisioned", "purpose", purpose.String(), "kid", meta.KeyID, "alias", meta.Alias)
		return meta, nil
	})
	if err != nil {
		return Metadata{}, err
	}
	return v.(Metadata), nil
}

// ActiveChainKey returns the id and material of the active chain HMAC
// key, provisioning one on first use.
func (m *Manager) ActiveChainKey(ctx context.Context) (string, []byte, error) {
	meta, material, err := m.activeMaterial(ctx, PurposeChain)
	if err != nil {
		return "", nil, err
	}
	return meta.KeyID, material, nil
}

// ActiveStorageKey returns the id and material of the active storage
// wrapping key, provisioning one on first use.
func (m *Manager) ActiveStorageKey(ctx context.Context) (string, []byte, error) {
	meta, material, err := m.activeMaterial(ctx, PurposeStorage)
	if err != nil {
		return "", nil, err
	}
	return meta.KeyID, material, nil
}

func (m *Manager) activeMaterial(ctx context.Context, purpose Purpose) (Metadata, []byte, error) {
	meta, err := m.EnsureActiveKey(ctx, purpose)
	if err != nil {
		return Metadata{}, nil, err
	}
	material, err := m.keystore.Key(ctx, meta.Alias)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Metadata without material means the platform keystore
			// dropped the key underneath us.
			return Metadata{}, nil, dErrors.Newf(dErrors.CodeHazard, "key material for alias %q missing from keystore", meta.Alias)
		}
		return Metadata{}, nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "read key material")
	}

	m.metrics.IncrementAccess(purpose.String())
	meta.AccessCount++
	if err := m.store.Put(ctx, meta); err != nil {
		// Access counting must not fail the caller's operation.
		m.logger.WarnContext(ctx, "access count update failed", "kid", meta.KeyID, "error", err)
	}
	return meta, material, nil
}

// ChainKey resolves material for any chain key generation, retired ones
// included, so old segments stay verifiable after rotation.
func (m *Manager) ChainKey(ctx context.Context, kid string) ([]byte, error) {
	meta, err := m.store.Get(ctx, kid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "key %q not found", kid)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "load key metadata")
	}
	material, err := m.keystore.Key(ctx, meta.Alias)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeHazard, "key material for alias %q missing from keystore", meta.Alias)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "read key material")
	}
	return material, nil
}

// Metadata returns the stored record for one key id.
func (m *Manager) Metadata(ctx context.Context, kid string) (Metadata, error) {
	meta, err := m.store.Get(ctx, kid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Metadata{}, dErrors.Newf(dErrors.CodeNotFound, "key %q not found", kid)
		}
		return Metadata{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "load key metadata")
	}
	return meta, nil
}

// VerifyIntegrity recomputes the checksum of a key's material and
// compares it against the metadata written at provisioning. Missing
// material or a mismatched checksum reports false; only infrastructure
// failures error.
func (m *Manager) VerifyIntegrity(ctx context.Context, kid string) (bool, error) {
	meta, err := m.Metadata(ctx, kid)
	if err != nil {
		return false, err
	}
	material, err := m.keystore.Key(ctx, meta.Alias)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "read key material")
	}
	sum := sha256.Sum256(material)
	return hex.EncodeToString(sum[:]) == meta.Checksum, nil
}

// List returns all key generations for purpose, oldest first. An empty
// purpose lists every purpose.
func (m *Manager) List(ctx context.Context, purpose Purpose) ([]Metadata, error) {
	if purpose != "" && !purpose.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown key purpose %q", purpose)
	}
	metas, err := m.store.List(ctx, purpose)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list key metadata")
	}
	return metas, nil
}

// RotateIfNeeded rotates the key holding alias when it is past its max
// age or over its access budget. Returns rotated=false with no error when
// the key is still healthy.
func (m *Manager) RotateIfNeeded(ctx context.Context, alias string) (RotationResult, bool, error) {
	meta, err := m.store.GetByAlias(ctx, alias)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return RotationResult{}, false, dErrors.Newf(dErrors.CodeNotFound, "key alias %q not found", alias)
		}
		return RotationResult{}, false, dErrors.Wrap(err, dErrors.CodeUnavailable, "load key metadata")
	}
	if !meta.IsActive {
		return RotationResult{}, false, nil
	}

	var reason RotationReason
	switch {
	case !m.clock().Before(meta.ExpiresAt):
		reason = RotationScheduled
	case meta.AccessCount >= m.policy.MaxAccessCount:
		reason = RotationAccessLimit
	default:
		return RotationResult{}, false, nil
	}

	result, err := m.Rotate(ctx, meta.Purpose, reason)
	if err != nil {
		return RotationResult{}, false, err
	}
	return result, true, nil
}

// RotateDue runs the rotation policy over every active key and rotates
// the ones past their age or access budget. Returns how many keys were
// rotated. The daemon calls this on a timer so scheduled rotation does
// not depend on an admin remembering to.
func (m *Manager) RotateDue(ctx context.Context) (int, error) {
	metas, err := m.store.List(ctx, "")
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "list key metadata")
	}

	rotated := 0
	for _, meta := range metas {
		if !meta.IsActive {
			continue
		}
		_, did, err := m.RotateIfNeeded(ctx, meta.Alias)
		if err != nil {
			return rotated, err
		}
		if did {
			rotated++
		}
	}
	return rotated, nil
}

// Rotate deactivates the active key for purpose and provisions its
// successor. The old generation keeps its material so historical data
// stays readable; only the sweep removes it after retention.
func (m *Manager) Rotate(ctx context.Context, purpose Purpose, reason RotationReason) (RotationResult, error) {
	if !purpose.IsValid() {
		return RotationResult{}, dErrors.Newf(dErrors.CodeInvalidInput, "unknown key purpose %q", purpose)
	}
	ctx, span := tracer.Start(ctx, "keys.rotate")
	defer span.End()
	span.SetAttributes(
		attribute.String("keys.purpose", purpose.String()),
		attribute.String("keys.reason", string(reason)),
	)

	m.rotateMu.Lock()
	defer m.rotateMu.Unlock()

	old, err := m.store.Active(ctx, purpose)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return RotationResult{}, dErrors.Newf(dErrors.CodeNotFound, "no active %s key to rotate", purpose)
		}
		return RotationResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "load active key metadata")
	}

	// Deactivate first so a crash between the two writes leaves zero
	// active keys rather than two.
	old.IsActive = false
	if err := m.store.Put(ctx, old); err != nil {
		return RotationResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "deactivate outgoing key")
	}

	fresh, err := m.provision(ctx, purpose, old.RotationCount+1)
	if err != nil {
		return RotationResult{}, err
	}

	result := RotationResult{
		Purpose:   purpose,
		OldKeyID:  old.KeyID,
		OldAlias:  old.Alias,
		NewKeyID:  fresh.KeyID,
		NewAlias:  fresh.Alias,
		Reason:    reason,
		RotatedAt: m.clock().UTC(),
	}

	m.metrics.IncrementRotation(purpose.String(), string(reason))
	m.logger.InfoContext(ctx, "key rotated",
		"purpose", purpose.String(), "reason", string(reason),
		"old_alias", old.Alias, "new_alias", fresh.Alias)

	if purpose == PurposeChain && m.rollover != nil {
		if _, err := m.rollover.RecordRollover(ctx, fresh.KeyID, "", string(reason)); err != nil {
			m.logger.ErrorContext(ctx, "rollover marker failed", "kid", fresh.KeyID, "error", err)
		}
	}
	if m.recorder != nil {
		err := m.recorder.Log(ctx, audit.SystemEncounterID, audit.EventKeyRotation, audit.ActorApp, map[string]string{
			"purpose":   purpose.String(),
			"reason":    string(reason),
			"old_alias": old.Alias,
			"new_alias": fresh.Alias,
		})
		if err != nil {
			m.logger.ErrorContext(ctx, "rotation audit event failed", "error", err)
		}
	}
	return result, nil
}

// SweepExpired removes retired keys whose retention window has passed:
// material from the keystore, then the metadata record. Returns how many
// keys were removed.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	metas, err := m.store.List(ctx, "")
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "list key metadata")
	}

	now := m.clock()
	removed := 0
	for _, meta := range metas {
		if meta.IsActive || now.Before(meta.ExpiresAt.Add(m.policy.RetiredRetention)) {
			continue
		}
		if err := m.keystore.Delete(ctx, meta.Alias); err != nil {
			m.logger.WarnContext(ctx, "sweep: keystore delete failed", "alias", meta.Alias, "error", err)
			continue
		}
		if err := m.store.Delete(ctx, meta.KeyID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			m.logger.WarnContext(ctx, "sweep: metadata delete failed", "kid", meta.KeyID, "error", err)
			continue
		}
		removed++
	}

	m.metrics.AddSwept(removed)
	if removed > 0 {
		m.logger.InfoContext(ctx, "retired keys swept", "removed", removed)
	}
	return removed, nil
}

// provision creates one key generation. rotationCount is zero for the
// first generation of a purpose.
func (m *Manager) provision(ctx context.Context, purpose Purpose, rotationCount int) (Metadata, error) {
	now := m.clock().UTC()
	alias := fmt.Sprintf("%s-v%d", purpose.aliasPrefix(), rotationCount+1)

	// A stale file from a wiped install may still hold the alias; skip
	// forward rather than fail provisioning.
	for {
		exists, err := m.keystore.Contains(ctx, alias)
		if err != nil {
			return Metadata{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "probe keystore alias")
		}
		if !exists {
			break
		}
		rotationCount++
		alias = fmt.Sprintf("%s-v%d", purpose.aliasPrefix(), rotationCount+1)
	}

	if err := m.keystore.Generate(ctx, alias, m.policy.KeySize); err != nil {
		return Metadata{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "generate key material")
	}
	material, err := m.keystore.Key(ctx, alias)
	if err != nil {
		return Metadata{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "read generated key")
	}
	sum := sha256.Sum256(material)

	meta := Metadata{
		KeyID:         uuid.NewString(),
		Alias:         alias,
		Purpose:       purpose,
		KeyType:       "HMAC-SHA256",
		KeySize:       m.policy.KeySize * 8,
		CreatedAt:     now,
		ExpiresAt:     now.Add(m.policy.maxAge(purpose)),
		IsActive:      true,
		RotationCount: rotationCount,
		VaultLocation: "keystore:" + alias,
		Checksum:      hex.EncodeToString(sum[:]),
	}
	if purpose == PurposeStorage {
		meta.KeyType = "XCHACHA20-POLY1305"
	}
	if err := m.store.Put(ctx, meta); err != nil {
		return Metadata{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "persist key metadata")
	}
	return meta, nil
}
