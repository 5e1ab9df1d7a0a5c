package domain

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// EntryType enumerates ledger operation types.
type EntryType string

const (
	EntryDeposit    EntryType = "deposit"
	EntryWithdraw   EntryType = "withdraw"
	EntryBetStake   EntryType = "bet_stake"
	EntryBetWin     EntryType = "bet_win"
	EntryBetLose    EntryType = "bet_lose"
	EntryAdjustment EntryType = "adjustment"
)

// LedgerEntry is an append-only double-entry row.
//
// Amount is the signed delta to the account's available balance and
// LockedDelta the signed delta to its locked balance. Every atomic operation
// posts rows whose (Amount + LockedDelta) sum to zero across all affected
// accounts, so the whole ledger always nets to zero, and per-account running
// sums reproduce the (available, locked) snapshot exactly — including while
// bets are open.
type LedgerEntry struct {
	ID          uuid.UUID `json:"id"`
	AccountRef  string    `json:"account_ref"`
	Type        EntryType `json:"op_type"`
	Amount      *big.Int  `json:"amount_wei"`
	LockedDelta *big.Int  `json:"locked_delta_wei"`
	Ref         EntryRef  `json:"ref"`
	CreatedAt   time.Time `json:"created_at"`
}

// EntryRef is the opaque reference object attached to each row. ClientID is
// the idempotency key: at most one row per ClientID, enforced by a unique
// index. House-side counter rows derive their key as "<client_id>#house".
type EntryRef struct {
	ClientID string `json:"client_id"`
	RoundID  string `json:"round_id,omitempty"`
	BetID    string `json:"bet_id,omitempty"`
	TxHash   string `json:"tx_hash,omitempty"`
	Note     string `json:"note,omitempty"`
}

// HouseRefKey derives the counter-row idempotency key for a player-side key.
func HouseRefKey(clientID string) string { return clientID + "#house" }

// Posting is one account-side effect of an atomic ledger operation.
type Posting struct {
	AccountRef  string
	Type        EntryType
	Amount      *big.Int
	LockedDelta *big.Int
	Ref         EntryRef
}

// Balanced reports whether the postings net to zero over amount+locked.
func Balanced(postings []Posting) bool {
	sum := new(big.Int)
	for _, p := range postings {
		sum.Add(sum, p.Amount)
		sum.Add(sum, p.LockedDelta)
	}
	return sum.Sign() == 0
}
