package domain

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// FundingType discriminates how a bet's stake is sourced.
type FundingType string

const (
	FundingBalance FundingType = "balance"
	FundingOnChain FundingType = "onchain"
)

// BetFunding is the tagged funding variant carried through a bet's lifetime.
// TxHash is set only for on-chain funded bets.
type BetFunding struct {
	Type   FundingType `json:"type"`
	TxHash string      `json:"tx_hash,omitempty"`
}

// BetStatus is the bet lifecycle state. Bets transition only
// open → {cashed, lost, refunded}.
type BetStatus string

const (
	BetOpen     BetStatus = "open"
	BetCashed   BetStatus = "cashed"
	BetLost     BetStatus = "lost"
	BetRefunded BetStatus = "refunded"
)

// Bet lives in memory during a round and is persisted at settlement.
type Bet struct {
	ID             uuid.UUID  `json:"id"`
	RoundID        string     `json:"round_id"`
	Player         string     `json:"player"`
	Stake          *big.Int   `json:"stake_wei"`
	Funding        BetFunding `json:"funding"`
	AutoCashoutPPM int64      `json:"auto_cashout_ppm,omitempty"`
	CashoutPPM     int64      `json:"cashout_ppm,omitempty"`
	Payout         *big.Int   `json:"payout_wei,omitempty"`
	Status         BetStatus  `json:"status"`
	ClientID       string     `json:"client_id"`
	PlacedAt       time.Time  `json:"placed_at"`
}

// WinPayout computes floor(stake × cashoutPPM / 1_000_000).
func WinPayout(stake *big.Int, cashoutPPM int64) *big.Int {
	p := new(big.Int).Mul(stake, big.NewInt(cashoutPPM))
	return p.Div(p, big.NewInt(1_000_000))
}

// MaxLiability bounds the potential payout of an open bet at capMultPPM.
func (b *Bet) MaxLiability(capMultPPM int64) *big.Int {
	cap := capMultPPM
	if b.AutoCashoutPPM > 0 && b.AutoCashoutPPM < cap {
		cap = b.AutoCashoutPPM
	}
	return WinPayout(b.Stake, cap)
}
