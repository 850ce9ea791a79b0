package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type FileStoreSuite struct {
	suite.Suite
	dir   string
	store *FileStore
	ctx   context.Context
	now   time.Time
}

func TestFileStoreSuite(t *testing.T) {
	suite.Run(t, new(FileStoreSuite))
}

func (s *FileStoreSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.store = NewFileStore(s.dir, WithFileClock(func() time.Time { return s.now }))
	s.ctx = context.Background()
}

func (s *FileStoreSuite) event(encounterID string, et EventType) Event {
	return Event{
		EncounterID: encounterID,
		KeyID:       "audit-hmac-v1",
		PrevHash:    GenesisSentinel,
		Event:       et,
		Timestamp:   s.now,
		Actor:       ActorApp,
	}
}

func (s *FileStoreSuite) TestAppendAndReplay() {
	s.Require().NoError(s.store.Append(s.ctx, s.event("enc-1", EventConsentOn)))
	s.Require().NoError(s.store.Append(s.ctx, s.event("enc-1", EventExport)))
	s.Require().NoError(s.store.Append(s.ctx, s.event("enc-2", EventConsentOn)))

	set, err := s.store.Replay(s.ctx)
	s.Require().NoError(err)
	s.Len(set.Events, 3)
	s.Equal(0, set.Malformed)
	s.Equal(EventConsentOn, set.Events[0].Event)
	s.Equal("enc-2", set.Events[2].EncounterID)
}

func (s *FileStoreSuite) TestSegmentPerDay() {
	s.Require().NoError(s.store.Append(s.ctx, s.event("enc-1", EventConsentOn)))
	s.now = s.now.Add(24 * time.Hour)
	s.Require().NoError(s.store.Append(s.ctx, s.event("enc-1", EventSessionEnd)))

	first := filepath.Join(s.dir, "audit-2026-03-14.jsonl")
	second := filepath.Join(s.dir, "audit-2026-03-15.jsonl")
	s.FileExists(first)
	s.FileExists(second)

	// Replay walks segments in date order.
	set, err := s.store.Replay(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(set.Events, 2)
	s.Equal(EventConsentOn, set.Events[0].Event)
	s.Equal(EventSessionEnd, set.Events[1].Event)
}

func (s *FileStoreSuite) TestListByEncounter() {
	s.Require().NoError(s.store.Append(s.ctx, s.event("enc-1", EventConsentOn)))
	s.Require().NoError(s.store.Append(s.ctx, s.event("enc-2", EventConsentOn)))
	s.Require().NoError(s.store.Append(s.ctx, s.event("enc-1", EventConsentOff)))

	events, err := s.store.ListByEncounter(s.ctx, "enc-1")
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(EventConsentOn, events[0].Event)
	s.Equal(EventConsentOff, events[1].Event)

	none, err := s.store.ListByEncounter(s.ctx, "enc-404")
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *FileStoreSuite) TestMalformedLinesSkippedAndCounted() {
	s.Require().NoError(s.store.Append(s.ctx, s.event("enc-1", EventConsentOn)))

	path := filepath.Join(s.dir, "audit-2026-03-14.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	s.Require().NoError(err)
	_, err = f.WriteString("{torn line\n{\"foo\":1}\n")
	s.Require().NoError(err)
	s.Require().NoError(f.Close())

	s.Require().NoError(s.store.Append(s.ctx, s.event("enc-1", EventExport)))

	set, err := s.store.Replay(s.ctx)
	s.Require().NoError(err)
	s.Len(set.Events, 2)
	s.Equal(2, set.Malformed)
}

func (s *FileStoreSuite) TestReplayOnEmptyDir() {
	set, err := s.store.Replay(s.ctx)
	s.Require().NoError(err)
	s.Empty(set.Events)
	s.Equal(0, set.Malformed)
}
