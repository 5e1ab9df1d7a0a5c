package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunarush/crashcore/internal/domain"
)

func TestRingReplaysAfterSeq(t *testing.T) {
	ring := newReplayRing(8)
	for seq := uint64(1); seq <= 5; seq++ {
		ring.add(domain.Event{Type: "tick", Seq: seq})
	}

	events, ok := ring.since(2)
	require.True(t, ok)
	require.Len(t, events, 3)
	assert.Equal(t, uint64(3), events[0].Seq)
	assert.Equal(t, uint64(5), events[2].Seq)
}

func TestRingReportsEvictedGap(t *testing.T) {
	ring := newReplayRing(4)
	for seq := uint64(1); seq <= 10; seq++ {
		ring.add(domain.Event{Type: "tick", Seq: seq})
	}
	// Only 7..10 remain buffered.
	assert.Equal(t, uint64(7), ring.oldest())

	_, ok := ring.since(3)
	assert.False(t, ok)

	events, ok := ring.since(6)
	require.True(t, ok)
	assert.Len(t, events, 4)

	events, ok = ring.since(10)
	require.True(t, ok)
	assert.Empty(t, events)
}

func TestRingEmptyIsAlwaysServable(t *testing.T) {
	ring := newReplayRing(4)
	events, ok := ring.since(0)
	assert.True(t, ok)
	assert.Empty(t, events)
}
