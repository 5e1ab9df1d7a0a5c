package engine

import (
	"math/big"

	"github.com/google/uuid"

	"github.com/lunarush/crashcore/internal/domain"
)

// Book is the in-memory bet book for the round in flight. It is owned
// exclusively by the engine goroutine, so it carries no locking; all access is
// serialized through the mailbox.
type Book struct {
	bets     map[uuid.UUID]*domain.Bet
	byPlayer map[string]uuid.UUID
	clientID map[string]uuid.UUID
	txFunded map[string]bool
	order    []uuid.UUID
}

// NewBook returns an empty book.
func NewBook() *Book {
	return &Book{
		bets:     make(map[uuid.UUID]*domain.Bet),
		byPlayer: make(map[string]uuid.UUID),
		clientID: make(map[string]uuid.UUID),
		txFunded: make(map[string]bool),
	}
}

// Count returns the number of bets in the book.
func (b *Book) Count() int { return len(b.order) }

// HasClientID reports whether a bet with the client_id was already accepted.
func (b *Book) HasClientID(clientID string) bool {
	_, ok := b.clientID[clientID]
	return ok
}

// ByClientID returns the accepted bet carrying the client_id, or nil.
func (b *Book) ByClientID(clientID string) *domain.Bet {
	if id, ok := b.clientID[clientID]; ok {
		return b.bets[id]
	}
	return nil
}

// ByPlayer returns the player's bet in this round, or nil.
func (b *Book) ByPlayer(player string) *domain.Bet {
	if id, ok := b.byPlayer[player]; ok {
		return b.bets[id]
	}
	return nil
}

// TxFunded reports whether a funding tx hash was already consumed this round.
func (b *Book) TxFunded(txHash string) bool { return b.txFunded[txHash] }

// Add accepts a bet into the book. Callers must have validated uniqueness.
func (b *Book) Add(bet *domain.Bet) {
	b.bets[bet.ID] = bet
	b.byPlayer[bet.Player] = bet.ID
	b.clientID[bet.ClientID] = bet.ID
	if bet.Funding.Type == domain.FundingOnChain && bet.Funding.TxHash != "" {
		b.txFunded[bet.Funding.TxHash] = true
	}
	b.order = append(b.order, bet.ID)
}

// IDsInOrder returns the accepted bet IDs in acceptance order; this is the
// client-entropy input.
func (b *Book) IDsInOrder() []string {
	out := make([]string, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, id.String())
	}
	return out
}

// All returns the bets in acceptance order.
func (b *Book) All() []*domain.Bet {
	out := make([]*domain.Bet, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.bets[id])
	}
	return out
}

// Open returns the still-open bets in acceptance order.
func (b *Book) Open() []*domain.Bet {
	var out []*domain.Bet
	for _, id := range b.order {
		if bet := b.bets[id]; bet.Status == domain.BetOpen {
			out = append(out, bet)
		}
	}
	return out
}

// OpenLiability sums the capped potential payout of every open bet.
func (b *Book) OpenLiability(capMultPPM int64) *big.Int {
	total := new(big.Int)
	for _, id := range b.order {
		bet := b.bets[id]
		if bet.Status != domain.BetOpen {
			continue
		}
		total.Add(total, bet.MaxLiability(capMultPPM))
	}
	return total
}

// MarkCashed records a cashout at the given multiplier and returns the payout.
func (b *Book) MarkCashed(bet *domain.Bet, multiplierPPM int64) *big.Int {
	bet.Status = domain.BetCashed
	bet.CashoutPPM = multiplierPPM
	bet.Payout = domain.WinPayout(bet.Stake, multiplierPPM)
	return new(big.Int).Set(bet.Payout)
}

// SweepOpen marks every still-open bet lost and returns them.
func (b *Book) SweepOpen() []*domain.Bet {
	var swept []*domain.Bet
	for _, id := range b.order {
		if bet := b.bets[id]; bet.Status == domain.BetOpen {
			bet.Status = domain.BetLost
			swept = append(swept, bet)
		}
	}
	return swept
}
