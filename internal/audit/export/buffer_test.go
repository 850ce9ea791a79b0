package export

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"charak/internal/audit"
)

func event(n int) audit.Event {
	return audit.Event{
		EncounterID: "enc-1",
		Event:       audit.EventConsentOn,
		Meta:        map[string]string{"seq": fmt.Sprint(n)},
	}
}

func seqs(events []audit.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Meta["seq"]
	}
	return out
}

func TestRingBufferFIFO(t *testing.T) {
	b := NewRingBuffer(4)
	for i := 1; i <= 3; i++ {
		b.Enqueue(event(i))
	}
	assert.Equal(t, 3, b.Len())

	got := b.DequeueBatch(2)
	assert.Equal(t, []string{"1", "2"}, seqs(got))
	assert.Equal(t, 1, b.Len())

	got = b.DequeueBatch(10)
	assert.Equal(t, []string{"3"}, seqs(got))
	assert.Nil(t, b.DequeueBatch(1))
}

func TestRingBufferDropsOldestWhenFull(t *testing.T) {
	b := NewRingBuffer(3)
	for i := 1; i <= 5; i++ {
		b.Enqueue(event(i))
	}
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, int64(2), b.Dropped())

	got := b.DequeueBatch(3)
	assert.Equal(t, []string{"3", "4", "5"}, seqs(got))
}

func TestRingBufferRequeuePreservesOrder(t *testing.T) {
	b := NewRingBuffer(8)
	for i := 1; i <= 4; i++ {
		b.Enqueue(event(i))
	}

	batch := b.DequeueBatch(2)
	require.Equal(t, []string{"1", "2"}, seqs(batch))

	// New arrivals while the batch is in flight.
	b.Enqueue(event(5))

	b.Requeue(batch)
	got := b.DequeueBatch(8)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, seqs(got))
}

func TestRingBufferRequeueIntoFullBufferDropsRequeued(t *testing.T) {
	b := NewRingBuffer(2)
	b.Enqueue(event(1))
	b.Enqueue(event(2))

	batch := b.DequeueBatch(2)
	b.Enqueue(event(3))
	b.Enqueue(event(4))

	// No room left; the in-flight batch is the oldest data and is
	// dropped rather than the newer arrivals.
	b.Requeue(batch)
	assert.Equal(t, 2, b.Len())
	assert.Positive(t, b.Dropped())
}

func TestRingBufferDefaultCapacity(t *testing.T) {
	b := NewRingBuffer(0)
	b.Enqueue(event(1))
	assert.Equal(t, 1, b.Len())
}
