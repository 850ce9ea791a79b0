package keys

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

type ManagerSuite struct {
	suite.Suite
	keystore *MemoryKeystore
	store    *MemoryMetadataStore
	manager  *Manager
	ctx      context.Context
	now      time.Time
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.keystore = NewMemoryKeystore()
	s.store = NewMemoryMetadataStore()
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.manager = NewManager(s.keystore, s.store, log,
		WithManagerClock(func() time.Time { return s.now }))
	s.ctx = context.Background()
}

func (s *ManagerSuite) TestEnsureActiveKey() {
	s.Run("provisions generation one", func() {
		meta, err := s.manager.EnsureActiveKey(s.ctx, PurposeChain)
		s.Require().NoError(err)
		s.True(meta.IsActive)
		s.Equal("audit-hmac-v1", meta.Alias)
		s.Equal(0, meta.RotationCount)
		s.Equal(256, meta.KeySize)
		s.NotEmpty(meta.Checksum)
		s.Equal(s.now.Add(90*24*time.Hour), meta.ExpiresAt)

		exists, err := s.keystore.Contains(s.ctx, meta.Alias)
		s.Require().NoError(err)
		s.True(exists)
	})

	s.Run("returns the same key on repeat calls", func() {
		first, err := s.manager.EnsureActiveKey(s.ctx, PurposeChain)
		s.Require().NoError(err)
		second, err := s.manager.EnsureActiveKey(s.ctx, PurposeChain)
		s.Require().NoError(err)
		s.Equal(first.KeyID, second.KeyID)
	})

	s.Run("purposes are independent", func() {
		chain, err := s.manager.EnsureActiveKey(s.ctx, PurposeChain)
		s.Require().NoError(err)
		storage, err := s.manager.EnsureActiveKey(s.ctx, PurposeStorage)
		s.Require().NoError(err)
		s.NotEqual(chain.KeyID, storage.KeyID)
		s.Equal("storage-aes-v1", storage.Alias)
		s.Equal(s.now.Add(180*24*time.Hour), storage.ExpiresAt)
	})

	s.Run("unknown purpose rejected", func() {
		_, err := s.manager.EnsureActiveKey(s.ctx, Purpose("signing"))
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
	})
}

func (s *ManagerSuite) TestConcurrentProvisioning() {
	var wg sync.WaitGroup
	ids := make(chan string, 20)
	for range 20 {
		wg.Go(func() {
			meta, err := s.manager.EnsureActiveKey(s.ctx, PurposeChain)
			s.Require().NoError(err)
			ids <- meta.KeyID
		})
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		seen[id] = true
	}
	s.Len(seen, 1)

	metas, err := s.manager.List(s.ctx, PurposeChain)
	s.Require().NoError(err)
	s.Len(metas, 1)
}

func (s *ManagerSuite) TestActiveChainKey() {
	kid, material, err := s.manager.ActiveChainKey(s.ctx)
	s.Require().NoError(err)
	s.NotEmpty(kid)
	s.Len(material, 32)

	resolved, err := s.manager.ChainKey(s.ctx, kid)
	s.Require().NoError(err)
	s.Equal(material, resolved)
}

func (s *ManagerSuite) TestAccessCounting() {
	for range 3 {
		_, _, err := s.manager.ActiveChainKey(s.ctx)
		s.Require().NoError(err)
	}
	metas, err := s.manager.List(s.ctx, PurposeChain)
	s.Require().NoError(err)
	s.Require().Len(metas, 1)
	s.Equal(int64(3), metas[0].AccessCount)
}

func (s *ManagerSuite) TestRotate() {
	old, err := s.manager.EnsureActiveKey(s.ctx, PurposeChain)
	s.Require().NoError(err)

	result, err := s.manager.Rotate(s.ctx, PurposeChain, RotationManual)
	s.Require().NoError(err)
	s.Equal(old.KeyID, result.OldKeyID)
	s.NotEqual(old.KeyID, result.NewKeyID)
	s.NotEqual(old.Alias, result.NewAlias)
	s.Equal("audit-hmac-v2", result.NewAlias)

	oldMeta, err := s.manager.Metadata(s.ctx, old.KeyID)
	s.Require().NoError(err)
	s.False(oldMeta.IsActive)

	newMeta, err := s.manager.Metadata(s.ctx, result.NewKeyID)
	s.Require().NoError(err)
	s.True(newMeta.IsActive)
	s.Equal(1, newMeta.RotationCount)

	// The retired generation still resolves for verification.
	material, err := s.manager.ChainKey(s.ctx, old.KeyID)
	s.Require().NoError(err)
	s.Len(material, 32)
}

func (s *ManagerSuite) TestRotateWithoutActiveKey() {
	_, err := s.manager.Rotate(s.ctx, PurposeChain, RotationManual)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *ManagerSuite) TestRotateIfNeeded() {
	meta, err := s.manager.EnsureActiveKey(s.ctx, PurposeChain)
	s.Require().NoError(err)

	s.Run("healthy key untouched", func() {
		_, rotated, err := s.manager.RotateIfNeeded(s.ctx, meta.Alias)
		s.Require().NoError(err)
		s.False(rotated)
	})

	s.Run("expired key rotates", func() {
		s.now = s.now.Add(91 * 24 * time.Hour)
		result, rotated, err := s.manager.RotateIfNeeded(s.ctx, meta.Alias)
		s.Require().NoError(err)
		s.True(rotated)
		s.Equal(RotationScheduled, result.Reason)

		oldMeta, err := s.manager.Metadata(s.ctx, meta.KeyID)
		s.Require().NoError(err)
		s.False(oldMeta.IsActive)

		newMeta, err := s.manager.Metadata(s.ctx, result.NewKeyID)
		s.Require().NoError(err)
		s.Positive(newMeta.RotationCount)
	})

	s.Run("retired alias is a no-op", func() {
		_, rotated, err := s.manager.RotateIfNeeded(s.ctx, meta.Alias)
		s.Require().NoError(err)
		s.False(rotated)
	})

	s.Run("unknown alias fails", func() {
		_, _, err := s.manager.RotateIfNeeded(s.ctx, "phantom-v1")
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *ManagerSuite) TestRotateIfNeededOnAccessBudget() {
	policy := DefaultPolicy()
	policy.MaxAccessCount = 2
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := NewManager(s.keystore, s.store, log,
		WithManagerClock(func() time.Time { return s.now }),
		WithManagerPolicy(policy))

	meta, err := manager.EnsureActiveKey(s.ctx, PurposeChain)
	s.Require().NoError(err)
	for range 2 {
		_, _, err := manager.ActiveChainKey(s.ctx)
		s.Require().NoError(err)
	}

	result, rotated, err := manager.RotateIfNeeded(s.ctx, meta.Alias)
	s.Require().NoError(err)
	s.True(rotated)
	s.Equal(RotationAccessLimit, result.Reason)
}

func (s *ManagerSuite) TestMissingMaterialIsHazard() {
	meta, err := s.manager.EnsureActiveKey(s.ctx, PurposeChain)
	s.Require().NoError(err)
	s.Require().NoError(s.keystore.Delete(s.ctx, meta.Alias))

	_, _, err = s.manager.ActiveChainKey(s.ctx)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeHazard))
}

func (s *ManagerSuite) TestSweepExpired() {
	meta, err := s.manager.EnsureActiveKey(s.ctx, PurposeChain)
	s.Require().NoError(err)
	_, err = s.manager.Rotate(s.ctx, PurposeChain, RotationManual)
	s.Require().NoError(err)

	s.Run("inside retention nothing is swept", func() {
		removed, err := s.manager.SweepExpired(s.ctx)
		s.Require().NoError(err)
		s.Equal(0, removed)
	})

	s.Run("after retention the retired key goes", func() {
		s.now = s.now.Add((90 + 365 + 1) * 24 * time.Hour)
		removed, err := s.manager.SweepExpired(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, removed)

		_, err = s.manager.Metadata(s.ctx, meta.KeyID)
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *ManagerSuite) TestVerifyIntegrity() {
	s.Run("fresh key verifies", func() {
		meta, err := s.manager.EnsureActiveKey(s.ctx, PurposeChain)
		s.Require().NoError(err)

		ok, err := s.manager.VerifyIntegrity(s.ctx, meta.KeyID)
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("replaced material fails the checksum", func() {
		meta, err := s.manager.EnsureActiveKey(s.ctx, PurposeStorage)
		s.Require().NoError(err)

		s.Require().NoError(s.keystore.Delete(s.ctx, meta.Alias))
		s.Require().NoError(s.keystore.Generate(s.ctx, meta.Alias, 32))

		ok, err := s.manager.VerifyIntegrity(s.ctx, meta.KeyID)
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("missing material reports false without error", func() {
		meta, err := s.manager.EnsureActiveKey(s.ctx, PurposeChain)
		s.Require().NoError(err)
		s.Require().NoError(s.keystore.Delete(s.ctx, meta.Alias))

		ok, err := s.manager.VerifyIntegrity(s.ctx, meta.KeyID)
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("unknown key id is not found", func() {
		_, err := s.manager.VerifyIntegrity(s.ctx, "no-such-kid")
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *ManagerSuite) TestRotateDue() {
	chain, err := s.manager.EnsureActiveKey(s.ctx, PurposeChain)
	s.Require().NoError(err)
	storage, err := s.manager.EnsureActiveKey(s.ctx, PurposeStorage)
	s.Require().NoError(err)

	s.Run("fresh keys are left alone", func() {
		rotated, err := s.manager.RotateDue(s.ctx)
		s.Require().NoError(err)
		s.Zero(rotated)
	})

	s.Run("only keys past their age rotate", func() {
		// 91 days: past the 90-day chain threshold, inside the 180-day
		// storage threshold.
		s.now = s.now.Add(91 * 24 * time.Hour)
		rotated, err := s.manager.RotateDue(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, rotated)

		oldChain, err := s.manager.Metadata(s.ctx, chain.KeyID)
		s.Require().NoError(err)
		s.False(oldChain.IsActive)

		stillActive, err := s.manager.Metadata(s.ctx, storage.KeyID)
		s.Require().NoError(err)
		s.True(stillActive.IsActive)
	})

	s.Run("second pass is a no-op", func() {
		rotated, err := s.manager.RotateDue(s.ctx)
		s.Require().NoError(err)
		s.Zero(rotated)
	})
}

func (s *ManagerSuite) TestChainRotationRecordsRollover() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	markers := audit.NewMemoryMarkerStore()
	genesis := audit.NewGenesisManager(markers, log)
	s.manager.AttachAudit(nil, genesis)

	chain, err := s.manager.EnsureActiveKey(s.ctx, PurposeChain)
	s.Require().NoError(err)

	s.Run("rotation before genesis leaves no marker", func() {
		_, err := s.manager.Rotate(s.ctx, PurposeChain, RotationManual)
		s.Require().NoError(err)

		stored, err := markers.List(s.ctx)
		s.Require().NoError(err)
		s.Empty(stored)
	})

	s.Run("rotation after genesis persists a rollover", func() {
		root, err := genesis.EnsureGenesis(s.ctx, chain.KeyID)
		s.Require().NoError(err)

		result, err := s.manager.Rotate(s.ctx, PurposeChain, RotationManual)
		s.Require().NoError(err)

		stored, err := markers.List(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(stored, 2)
		s.Equal(audit.MarkerRollover, stored[1].Kind)
		s.Equal(root.ID, stored[1].PrevGenesisID)
		s.Equal(result.NewKeyID, stored[1].KeyID)
	})
}
