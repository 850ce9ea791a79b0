package audit

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "charak/pkg/domain-errors"
	"charak/pkg/sentinel"
)

// rotatingKeys is a ChainKeyProvider plus KeyResolver backed by a map so
// tests can flip the active key mid-chain.
type rotatingKeys struct {
	mu     sync.Mutex
	active string
	keys   map[string][]byte
}

func newRotatingKeys(kid string, key []byte) *rotatingKeys {
	return &rotatingKeys{active: kid, keys: map[string][]byte{kid: key}}
}

func (r *rotatingKeys) ActiveChainKey(context.Context) (string, []byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active, r.keys[r.active], nil
}

func (r *rotatingKeys) ChainKey(_ context.Context, kid string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.keys[kid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return key, nil
}

func (r *rotatingKeys) rotate(kid string, key []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = kid
	r.keys[kid] = key
}

type LoggerSuite struct {
	suite.Suite
	store    *MemoryStore
	keys     *rotatingKeys
	logger   *Logger
	verifier *Verifier
	ctx      context.Context
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerSuite))
}

func (s *LoggerSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.keys = newRotatingKeys("audit-hmac-v1", []byte("0123456789abcdef0123456789abcdef"))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.logger = NewLogger(s.store, s.keys, log)
	s.verifier = NewVerifier(s.store, s.keys, log)
	s.ctx = context.Background()
}

func (s *LoggerSuite) TestLogValidation() {
	s.Run("empty encounter id rejected", func() {
		err := s.logger.Log(s.ctx, "", EventConsentOn, ActorDoctor, nil)
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
	})

	s.Run("unknown event type rejected", func() {
		err := s.logger.Log(s.ctx, "enc-1", EventType("SNACK_BREAK"), ActorDoctor, nil)
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
	})

	s.Run("unknown actor rejected", func() {
		err := s.logger.Log(s.ctx, "enc-1", EventConsentOn, Actor("NURSE"), nil)
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
	})
}

func (s *LoggerSuite) TestChainLinkage() {
	s.Require().NoError(s.logger.Log(s.ctx, "enc-1", EventConsentOn, ActorDoctor, nil))
	s.Require().NoError(s.logger.Log(s.ctx, "enc-1", EventExport, ActorApp, map[string]string{"target": "clinic-api"}))

	events, err := s.store.ListByEncounter(s.ctx, "enc-1")
	s.Require().NoError(err)
	s.Require().Len(events, 2)

	s.Equal(GenesisSentinel, events[0].PrevHash)
	key, err := s.keys.ChainKey(s.ctx, events[1].KeyID)
	s.Require().NoError(err)
	s.Equal(ComputeLink(key, events[0]), events[1].PrevHash)
}

func (s *LoggerSuite) TestChainsIndependentPerEncounter() {
	s.Require().NoError(s.logger.Log(s.ctx, "enc-1", EventConsentOn, ActorDoctor, nil))
	s.Require().NoError(s.logger.Log(s.ctx, "enc-2", EventConsentOn, ActorDoctor, nil))

	events, err := s.store.ListByEncounter(s.ctx, "enc-2")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(GenesisSentinel, events[0].PrevHash)
}

func (s *LoggerSuite) TestVerifyRoundTrip() {
	s.Require().NoError(s.logger.Log(s.ctx, "enc-1", EventConsentOn, ActorDoctor, nil))
	s.Require().NoError(s.logger.Log(s.ctx, "enc-1", EventExport, ActorApp, nil))

	result, err := s.verifier.VerifyEncounter(s.ctx, "enc-1")
	s.Require().NoError(err)
	s.True(result.IsValid)
	s.Equal(2, result.ValidEvents)
	s.Equal(0, result.ChainBreaks)

	s.Require().NoError(s.logger.Log(s.ctx, "enc-1", EventConsentOff, ActorDoctor, nil))

	result, err = s.verifier.VerifyEncounter(s.ctx, "enc-1")
	s.Require().NoError(err)
	s.True(result.IsValid)
	s.Equal(3, result.ValidEvents)
	s.Equal(0, result.ChainBreaks)
}

func (s *LoggerSuite) TestTamperDetected() {
	s.Require().NoError(s.logger.Log(s.ctx, "enc-1", EventConsentOn, ActorDoctor, nil))
	s.Require().NoError(s.logger.Log(s.ctx, "enc-1", EventExport, ActorApp, nil))
	s.Require().NoError(s.logger.Log(s.ctx, "enc-1", EventConsentOff, ActorDoctor, nil))

	// Rewrite the first event's content in place, keeping everything else.
	s.store.mu.Lock()
	s.store.events[0].Actor = ActorAdmin
	s.store.mu.Unlock()

	result, err := s.verifier.VerifyEncounter(s.ctx, "enc-1")
	s.Require().NoError(err)
	s.False(result.IsValid)
	s.GreaterOrEqual(result.ChainBreaks, 1)
	s.Require().NotEmpty(result.Breaks)
	s.Equal("enc-1", result.Breaks[0].EncounterID)
}

func (s *LoggerSuite) TestTamperedPrevHashDetected() {
	s.Require().NoError(s.logger.Log(s.ctx, "enc-1", EventConsentOn, ActorDoctor, nil))
	s.Require().NoError(s.logger.Log(s.ctx, "enc-1", EventExport, ActorApp, nil))

	s.store.mu.Lock()
	s.store.events[1].PrevHash = "deadbeef" + s.store.events[1].PrevHash[8:]
	s.store.mu.Unlock()

	result, err := s.verifier.VerifyEncounter(s.ctx, "enc-1")
	s.Require().NoError(err)
	s.False(result.IsValid)
	s.Equal(1, result.ChainBreaks)
}

func (s *LoggerSuite) TestKeyRotationStartsNewSegment() {
	s.Require().NoError(s.logger.Log(s.ctx, "enc-1", EventConsentOn, ActorDoctor, nil))

	s.keys.rotate("audit-hmac-v2", []byte("fedcba9876543210fedcba9876543210"))
	s.Require().NoError(s.logger.Log(s.ctx, "enc-1", EventExport, ActorApp, nil))

	events, err := s.store.ListByEncounter(s.ctx, "enc-1")
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(GenesisSentinel, events[1].PrevHash)
	s.Equal("audit-hmac-v2", events[1].KeyID)

	// The reset is a rollover boundary, not a break.
	result, err := s.verifier.VerifyEncounter(s.ctx, "enc-1")
	s.Require().NoError(err)
	s.True(result.IsValid)
	s.Equal(2, result.ValidEvents)
	s.Equal(0, result.ChainBreaks)
}

func (s *LoggerSuite) TestTailRecoveredAfterRestart() {
	s.Require().NoError(s.logger.Log(s.ctx, "enc-1", EventConsentOn, ActorDoctor, nil))

	// A fresh logger over the same store must continue the chain, not
	// restart it.
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	fresh := NewLogger(s.store, s.keys, log)
	s.Require().NoError(fresh.Log(s.ctx, "enc-1", EventExport, ActorApp, nil))

	result, err := s.verifier.VerifyEncounter(s.ctx, "enc-1")
	s.Require().NoError(err)
	s.True(result.IsValid)
	s.Equal(2, result.ValidEvents)

	events, err := s.store.ListByEncounter(s.ctx, "enc-1")
	s.Require().NoError(err)
	s.NotEqual(GenesisSentinel, events[1].PrevHash)
}

func (s *LoggerSuite) TestConcurrentAppendsKeepChainIntact() {
	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			s.Require().NoError(s.logger.Log(s.ctx, "enc-1", EventExport, ActorApp, nil))
		})
	}
	wg.Wait()

	result, err := s.verifier.VerifyEncounter(s.ctx, "enc-1")
	s.Require().NoError(err)
	s.True(result.IsValid)
	s.Equal(50, result.ValidEvents)
	s.Equal(0, result.ChainBreaks)
}

func (s *LoggerSuite) TestVerifyChainAggregates() {
	s.Require().NoError(s.logger.Log(s.ctx, "enc-1", EventConsentOn, ActorDoctor, nil))
	s.Require().NoError(s.logger.Log(s.ctx, "enc-1", EventExport, ActorApp, nil))
	s.Require().NoError(s.logger.Log(s.ctx, "enc-2", EventConsentOn, ActorDoctor, nil))

	result, err := s.verifier.VerifyChain(s.ctx)
	s.Require().NoError(err)
	s.True(result.IsValid)
	s.Equal(3, result.ValidEvents)
	s.Equal(0, result.ChainBreaks)
}

func (s *LoggerSuite) TestTimestampsComeFromClock() {
	fixed := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	clocked := NewLogger(s.store, s.keys, log, WithLoggerClock(func() time.Time { return fixed }))

	s.Require().NoError(clocked.Log(s.ctx, "enc-1", EventConsentOn, ActorDoctor, nil))

	events, err := s.store.ListByEncounter(s.ctx, "enc-1")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.True(events[0].Timestamp.Equal(fixed))
}
