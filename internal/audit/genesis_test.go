package audit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "charak/pkg/domain-errors"
)

type GenesisManagerSuite struct {
	suite.Suite
	store   *MemoryMarkerStore
	manager *GenesisManager
	ctx     context.Context
	now     time.Time
}

func TestGenesisManagerSuite(t *testing.T) {
	suite.Run(t, new(GenesisManagerSuite))
}

func (s *GenesisManagerSuite) SetupTest() {
	s.store = NewMemoryMarkerStore()
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.manager = NewGenesisManager(s.store, log, WithGenesisClock(func() time.Time { return s.now }))
	s.ctx = context.Background()
}

func (s *GenesisManagerSuite) TestEnsureGenesis() {
	s.Run("creates exactly one genesis", func() {
		first, err := s.manager.EnsureGenesis(s.ctx, "audit-hmac-v1")
		s.Require().NoError(err)
		s.Equal(MarkerGenesis, first.Kind)
		s.Equal(GenesisSentinel, first.TerminalHash)
		s.NotEmpty(first.ID)

		again, err := s.manager.EnsureGenesis(s.ctx, "audit-hmac-v1")
		s.Require().NoError(err)
		s.Equal(first.ID, again.ID)

		markers, err := s.manager.Markers(s.ctx)
		s.Require().NoError(err)
		s.Len(markers, 1)
	})
}

func (s *GenesisManagerSuite) TestRecordRollover() {
	s.Run("without genesis fails", func() {
		_, err := s.manager.RecordRollover(s.ctx, "audit-hmac-v2", "", "scheduled rotation")
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})

	s.Run("links to current genesis", func() {
		genesis, err := s.manager.EnsureGenesis(s.ctx, "audit-hmac-v1")
		s.Require().NoError(err)

		rollover, err := s.manager.RecordRollover(s.ctx, "audit-hmac-v2", "abc123", "scheduled rotation")
		s.Require().NoError(err)
		s.Equal(MarkerRollover, rollover.Kind)
		s.Equal(genesis.ID, rollover.PrevGenesisID)
		s.Equal("abc123", rollover.TerminalHash)
		s.Equal("audit-hmac-v2", rollover.KeyID)
	})

	s.Run("empty terminal hash falls back to sentinel", func() {
		_, err := s.manager.EnsureGenesis(s.ctx, "audit-hmac-v1")
		s.Require().NoError(err)

		rollover, err := s.manager.RecordRollover(s.ctx, "audit-hmac-v3", "", "hazard recovery")
		s.Require().NoError(err)
		s.Equal(GenesisSentinel, rollover.TerminalHash)
	})

	s.Run("missing key id rejected", func() {
		_, err := s.manager.RecordRollover(s.ctx, "", "", "x")
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
	})
}

func (s *GenesisManagerSuite) TestAnalyzeGaps() {
	genesis, err := s.manager.EnsureGenesis(s.ctx, "audit-hmac-v1")
	s.Require().NoError(err)

	s.Run("clean history has no gaps", func() {
		rollover, err := s.manager.RecordRollover(s.ctx, "audit-hmac-v2", "", "scheduled rotation")
		s.Require().NoError(err)
		s.Equal(genesis.ID, rollover.PrevGenesisID)

		analysis, err := s.manager.AnalyzeGaps(s.ctx)
		s.Require().NoError(err)
		s.Empty(analysis.Gaps)
	})

	s.Run("rollover referencing unknown genesis is a gap", func() {
		orphan := ChainMarker{
			ID:            "rollover-orphan",
			Kind:          MarkerRollover,
			Timestamp:     s.now,
			KeyID:         "audit-hmac-v9",
			PrevGenesisID: "genesis-from-wiped-install",
		}
		s.Require().NoError(s.store.Append(s.ctx, orphan))

		analysis, err := s.manager.AnalyzeGaps(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(analysis.Gaps, 1)
		s.Equal("rollover-orphan", analysis.Gaps[0].RolloverID)
		s.Equal("genesis-from-wiped-install", analysis.Gaps[0].PrevGenesisID)
		s.Require().NotEmpty(analysis.Recommendations)
		s.Contains(analysis.Recommendations[0], "record a stitch")
	})

	s.Run("stitched gap gets softer recommendation", func() {
		_, err := s.manager.RecordStitch(s.ctx, "genesis-from-wiped-install", "confirmed device reset")
		s.Require().NoError(err)

		analysis, err := s.manager.AnalyzeGaps(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(analysis.Gaps, 1)
		s.Contains(analysis.Recommendations[0], "already stitched")
	})
}

func (s *GenesisManagerSuite) TestRecordStitch() {
	s.Run("requires previous genesis id", func() {
		_, err := s.manager.RecordStitch(s.ctx, "", "reason")
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
	})

	s.Run("persists stitch marker", func() {
		stitch, err := s.manager.RecordStitch(s.ctx, "genesis-old", "detected gap after reinstall")
		s.Require().NoError(err)
		s.Equal(MarkerStitch, stitch.Kind)
		s.Equal("genesis-old", stitch.PrevGenesisID)
	})
}
