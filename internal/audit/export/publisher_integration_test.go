//go:build integration

package export_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"charak/internal/audit"
	"charak/internal/audit/export"
	"charak/pkg/testutil/containers"
)

func TestKafkaPublisherRoundTrip(t *testing.T) {
	rp := containers.NewRedpandaContainer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pub, err := export.NewKafkaPublisher(ctx, rp.Brokers, "clinic-1")
	require.NoError(t, err)
	defer pub.Close()

	events := []audit.Event{
		{
			EncounterID: "enc-1",
			KeyID:       "key-1",
			PrevHash:    audit.GenesisSentinel,
			Event:       audit.EventConsentOn,
			Timestamp:   time.Now().UTC().Truncate(time.Millisecond),
			Actor:       audit.ActorDoctor,
		},
		{
			EncounterID: "enc-1",
			KeyID:       "key-1",
			Event:       audit.EventSessionEnd,
			Timestamp:   time.Now().UTC().Truncate(time.Millisecond),
			Actor:       audit.ActorApp,
			Meta:        map[string]string{"session_id": "sess-1"},
		},
	}
	require.NoError(t, pub.Publish(ctx, events))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Brokers...),
		kgo.ConsumeTopics(export.TopicForClinic("clinic-1")),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	var got []audit.Event
	for len(got) < len(events) {
		fetches := consumer.PollFetches(ctx)
		require.NoError(t, fetches.Err())
		fetches.EachRecord(func(rec *kgo.Record) {
			assert.Equal(t, "enc-1", string(rec.Key))
			var ev audit.Event
			require.NoError(t, json.Unmarshal(rec.Value, &ev))
			got = append(got, ev)
		})
	}

	require.Len(t, got, 2)
	assert.Equal(t, audit.EventConsentOn, got[0].Event)
	assert.Equal(t, audit.EventSessionEnd, got[1].Event)
	assert.Equal(t, "sess-1", got[1].Meta["session_id"])
}

func TestEnsureTopicIdempotent(t *testing.T) {
	rp := containers.NewRedpandaContainer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	first, err := export.NewKafkaPublisher(ctx, rp.Brokers, "clinic-2")
	require.NoError(t, err)
	first.Close()

	// Second construction finds the topic already there.
	second, err := export.NewKafkaPublisher(ctx, rp.Brokers, "clinic-2")
	require.NoError(t, err)
	second.Close()
}
