package realtime

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunarush/crashcore/internal/infra"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	metrics := infra.NewMetrics(prometheus.NewRegistry())
	return NewHub(16, metrics, slog.Default())
}

func TestBroadcastAssignsMonotonicSeq(t *testing.T) {
	hub := newTestHub(t)

	first := hub.Broadcast("multiplier_tick", map[string]int{"m_ppm": 1})
	second := hub.Broadcast("multiplier_tick", map[string]int{"m_ppm": 2})

	assert.Equal(t, uint64(1), first)
	assert.Equal(t, uint64(2), second)
	assert.Equal(t, uint64(2), hub.CurrentSeq())
}

func TestBroadcastBuffersForReplay(t *testing.T) {
	hub := newTestHub(t)
	hub.Broadcast("betting_open", map[string]string{"round_id": "r-1"})
	hub.Broadcast("running_start", map[string]string{"round_id": "r-1"})

	events, ok := hub.Replay(1)
	require.True(t, ok)
	require.Len(t, events, 1)
	assert.Equal(t, "running_start", events[0].Type)

	frame, err := json.Marshal(events[0])
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(frame, &decoded))
	assert.Equal(t, "running_start", decoded["type"])
	assert.Equal(t, float64(2), decoded["seq"])
	assert.Equal(t, "r-1", decoded["round_id"])
}

func TestSlowClientIsDisconnected(t *testing.T) {
	hub := newTestHub(t)
	client := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.register(client)

	hub.Broadcast("tick", map[string]int{"n": 1})
	// The queue is full now; the next broadcast must evict the client
	// instead of blocking.
	hub.Broadcast("tick", map[string]int{"n": 2})

	hub.mu.Lock()
	_, registered := hub.clients[client]
	hub.mu.Unlock()
	assert.False(t, registered)
}
