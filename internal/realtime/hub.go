package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/infra"
)

// Hub fans broadcast events out to every connected client. Each event gets a
// monotonically increasing seq under the hub lock, so all clients observe the
// same total order; the replay ring serves resume requests.
type Hub struct {
	mu      sync.Mutex
	seq     uint64
	ring    *replayRing
	clients map[*Client]bool
	logger  *slog.Logger
	metrics *infra.Metrics
}

// NewHub creates a hub with the given replay ring capacity.
func NewHub(ringSize int, metrics *infra.Metrics, logger *slog.Logger) *Hub {
	return &Hub{
		ring:    newReplayRing(ringSize),
		clients: make(map[*Client]bool),
		logger:  logger.With("component", "realtime"),
		metrics: metrics,
	}
}

// Broadcast assigns the next seq, buffers the event, and enqueues it to every
// client. A client whose queue is full is disconnected rather than allowed to
// stall the round loop.
func (h *Hub) Broadcast(eventType string, payload interface{}) uint64 {
	body, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("marshal event payload", "type", eventType, "error", err)
		return h.CurrentSeq()
	}

	h.mu.Lock()
	h.seq++
	ev := domain.Event{Type: eventType, Seq: h.seq, Payload: body}
	h.ring.add(ev)

	frame, err := json.Marshal(ev)
	if err != nil {
		h.mu.Unlock()
		h.logger.Error("marshal event frame", "type", eventType, "error", err)
		return ev.Seq
	}

	var slow []*Client
	for c := range h.clients {
		if !c.enqueue(frame) {
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.logger.Warn("disconnecting slow client", "player", c.player)
		c.close()
	}
	return ev.Seq
}

// CurrentSeq returns the last assigned sequence number.
func (h *Hub) CurrentSeq() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.seq
}

// Replay returns buffered events after the given seq; ok is false when the
// gap is no longer coverable and the client needs a snapshot.
func (h *Hub) Replay(afterSeq uint64) ([]domain.Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ring.since(afterSeq)
}

// Recent returns the latest buffered events of one type, oldest first.
// Snapshots use it to seed fresh clients with the recent crash history.
func (h *Hub) Recent(eventType string, n int) []domain.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ring.lastOfType(eventType, n)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.WSClients.Set(float64(n))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.WSClients.Set(float64(n))
}

// CloseAll disconnects every client, used during shutdown drain.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
