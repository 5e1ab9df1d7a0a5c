package realtime

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/engine"
)

func TestSnapshotCarriesRecentCrashes(t *testing.T) {
	hub := newTestHub(t)
	g := NewGateway(hub, nil, nil, slog.Default())

	hub.Broadcast(domain.EventMultiplierTick, domain.MultiplierTickPayload{RoundID: "r-1", MPPM: 1_500_000})
	hub.Broadcast(domain.EventCrash, domain.CrashPayload{RoundID: "r-1", CrashPPM: 2_310_000})
	hub.Broadcast(domain.EventCrash, domain.CrashPayload{RoundID: "r-2", CrashPPM: 1_040_000})

	payload := g.snapshotPayload(engine.Snapshot{Phase: engine.PhaseBetting, RoundID: "r-3"})
	require.NotEmpty(t, payload.RecentEvents)

	// Only crash reveals, oldest first; ticks never make it in.
	var events []map[string]interface{}
	require.NoError(t, json.Unmarshal(payload.RecentEvents, &events))
	require.Len(t, events, 2)
	assert.Equal(t, "r-1", events[0]["round_id"])
	assert.Equal(t, "r-2", events[1]["round_id"])
	for _, ev := range events {
		assert.Equal(t, domain.EventCrash, ev["type"])
	}

	frame, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.Contains(t, string(frame), `"recent_events"`)
}

func TestSnapshotOmitsHistoryOnFreshStream(t *testing.T) {
	hub := newTestHub(t)
	g := NewGateway(hub, nil, nil, slog.Default())

	payload := g.snapshotPayload(engine.Snapshot{Phase: engine.PhaseIdle})

	assert.Empty(t, payload.RecentEvents)
}

func TestRecentCapsAndOrders(t *testing.T) {
	hub := newTestHub(t)
	for i := 0; i < 15; i++ {
		hub.Broadcast(domain.EventCrash, domain.CrashPayload{RoundID: "r", CrashPPM: int64(i)})
	}

	recent := hub.Recent(domain.EventCrash, snapshotRecentCrashes)

	require.Len(t, recent, snapshotRecentCrashes)
	for i := 1; i < len(recent); i++ {
		assert.Greater(t, recent[i].Seq, recent[i-1].Seq)
	}
}
