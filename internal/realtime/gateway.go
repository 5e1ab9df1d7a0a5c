package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lunarush/crashcore/internal/auth"
	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/engine"
	"github.com/lunarush/crashcore/internal/guard"
)

// frameRateLimit bounds client frames per connection per second.
const frameRateLimit = 10

// snapshotRecentCrashes is how many settled-round reveals a snapshot carries.
const snapshotRecentCrashes = 10

// Gateway upgrades websocket connections and translates client frames into
// engine requests. Replies to a player's own frames go only to that player's
// connection; everything else arrives via hub broadcast.
type Gateway struct {
	hub      *Hub
	engine   *engine.Engine
	tokens   *auth.Manager
	limiter  *guard.RateLimiter
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewGateway creates a websocket gateway over the hub and engine.
func NewGateway(hub *Hub, eng *engine.Engine, tokens *auth.Manager, logger *slog.Logger) *Gateway {
	return &Gateway{
		hub:     hub,
		engine:  eng,
		tokens:  tokens,
		limiter: guard.NewRateLimiter(frameRateLimit, time.Second),
		logger:  logger.With("component", "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS is the GET /ws handler. A token query parameter identifies the
// player immediately; otherwise the connection is a spectator until it sends
// a subscribe frame with a token.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("upgrade failed", "error", err)
		return
	}

	client := newClient(g.hub, conn)
	if token := r.URL.Query().Get("token"); token != "" {
		if addr, err := g.tokens.Verify(token); err == nil {
			client.setPlayer(addr)
		}
	}

	g.hub.register(client)
	go client.writePump()
	go func() {
		client.readPump(g.dispatch)
		g.limiter.Forget(connKey(client))
	}()

	g.sendSnapshot(client)
}

func connKey(c *Client) string { return fmt.Sprintf("%p", c) }

func (g *Gateway) dispatch(c *Client, data []byte) {
	if !g.limiter.Allow(connKey(c)) {
		g.sendError(c, "", domain.ErrRateLimited("frame rate limit exceeded"))
		return
	}

	var frame domain.ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		g.sendError(c, "", domain.ErrInvalidInput("malformed frame"))
		return
	}

	switch frame.Type {
	case domain.FrameSubscribe:
		g.handleSubscribe(c, frame)
	case domain.FrameResume:
		g.handleResume(c, frame)
	case domain.FramePlaceBet:
		g.handlePlaceBet(c, frame)
	case domain.FrameCashout:
		g.handleCashout(c, frame)
	default:
		g.sendError(c, frame.ClientID, domain.ErrInvalidInput("unknown frame type"))
	}
}

func (g *Gateway) handleSubscribe(c *Client, frame domain.ClientFrame) {
	if frame.Token != "" {
		addr, err := g.tokens.Verify(frame.Token)
		if err != nil {
			g.sendError(c, frame.ClientID, err)
			return
		}
		c.setPlayer(addr)
	}
	g.sendSnapshot(c)
}

// handleResume replays the gap after last_seq, or falls back to a snapshot
// when the ring has already evicted it.
func (g *Gateway) handleResume(c *Client, frame domain.ClientFrame) {
	events, ok := g.hub.Replay(frame.LastSeq)
	if !ok {
		g.sendSnapshot(c)
		return
	}
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		c.reply(data)
	}
}

func (g *Gateway) handlePlaceBet(c *Client, frame domain.ClientFrame) {
	player := c.Player()
	if player == "" {
		g.sendError(c, frame.ClientID, domain.ErrUnauthorized("identify before betting"))
		return
	}

	stake, err := domain.ParseWei(frame.AmountWei)
	if err != nil {
		g.sendError(c, frame.ClientID, err)
		return
	}

	funding := domain.BetFunding{Type: domain.FundingBalance}
	if frame.FundingType == string(domain.FundingOnChain) {
		funding = domain.BetFunding{Type: domain.FundingOnChain, TxHash: frame.TxHash}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bet, err := g.engine.PlaceBet(ctx, engine.PlaceBetParams{
		Player:         player,
		ClientID:       frame.ClientID,
		Stake:          stake,
		Funding:        funding,
		AutoCashoutPPM: frame.AutoCashoutPPM,
	})
	if err != nil {
		g.sendError(c, frame.ClientID, err)
		return
	}

	g.sendPersonal(c, domain.EventBetAccepted, domain.BetReplyPayload{
		ClientID: frame.ClientID,
		BetID:    bet.ID.String(),
	})
}

func (g *Gateway) handleCashout(c *Client, frame domain.ClientFrame) {
	player := c.Player()
	if player == "" {
		g.sendReject(c, domain.EventCashoutRejected, frame.ClientID, domain.ErrUnauthorized("identify before cashing out"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bet, mPPM, payout, err := g.engine.Cashout(ctx, player, frame.ClientID)
	if err != nil {
		g.sendReject(c, domain.EventCashoutRejected, frame.ClientID, err)
		return
	}

	g.sendPersonal(c, domain.EventCashoutAccepted, domain.CashoutReplyPayload{
		ClientID:      frame.ClientID,
		BetID:         bet.ID.String(),
		MultiplierPPM: mPPM,
		PayoutWei:     payout.String(),
	})
}

func (g *Gateway) sendSnapshot(c *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := g.engine.Snapshot(ctx)
	if err != nil {
		g.logger.Warn("snapshot failed", "error", err)
		return
	}

	g.sendPersonal(c, domain.EventStateSnapshot, g.snapshotPayload(snap))
}

// snapshotPayload renders engine state into the resync frame, carrying the
// latest crash reveals so a fresh client starts with round history.
func (g *Gateway) snapshotPayload(snap engine.Snapshot) domain.StateSnapshotPayload {
	payload := domain.StateSnapshotPayload{
		Phase:      snap.Phase,
		RoundID:    snap.RoundID,
		CommitHash: snap.CommitHash,
		MPPM:       snap.MultiplierPPM,
		Seq:        g.hub.CurrentSeq(),
	}
	if !snap.BettingEndsAt.IsZero() {
		payload.BettingEndsAt = snap.BettingEndsAt.UnixMilli()
	}
	if !snap.RunningStartedAt.IsZero() {
		payload.RunningStartedAt = snap.RunningStartedAt.UnixMilli()
	}
	if recent := g.hub.Recent(domain.EventCrash, snapshotRecentCrashes); len(recent) > 0 {
		if body, err := json.Marshal(recent); err == nil {
			payload.RecentEvents = body
		}
	}
	return payload
}

// sendPersonal writes a connection-scoped frame. Personal frames carry the
// hub's current seq but do not advance it; only broadcasts own the stream.
func (g *Gateway) sendPersonal(c *Client, eventType string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		g.logger.Error("marshal personal frame", "type", eventType, "error", err)
		return
	}
	frame, err := json.Marshal(domain.Event{Type: eventType, Seq: g.hub.CurrentSeq(), Payload: body})
	if err != nil {
		return
	}
	c.reply(frame)
}

func (g *Gateway) sendReject(c *Client, eventType, clientID string, err error) {
	code, msg := "INTERNAL", "internal error"
	var app *domain.AppError
	if errors.As(err, &app) {
		code, msg = app.Code, app.Message
	}
	g.sendPersonal(c, eventType, domain.BetReplyPayload{
		ClientID: clientID,
		Code:     code,
		Message:  msg,
	})
}

func (g *Gateway) sendError(c *Client, clientID string, err error) {
	g.sendReject(c, domain.EventBetRejected, clientID, err)
}
