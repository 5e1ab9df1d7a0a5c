package domain

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// WithdrawalStatus tracks a withdrawal through the payout pipeline.
type WithdrawalStatus string

const (
	WithdrawalQueued       WithdrawalStatus = "queued"
	WithdrawalRetrying     WithdrawalStatus = "retrying"
	WithdrawalBroadcasting WithdrawalStatus = "broadcasting"
	WithdrawalBroadcast    WithdrawalStatus = "broadcast"
	WithdrawalConfirmed    WithdrawalStatus = "confirmed"
	WithdrawalFailed       WithdrawalStatus = "failed"
	WithdrawalRefunded     WithdrawalStatus = "refunded"
)

// Withdrawal is a queued on-chain payout. The ledger debit happens at queue
// time; the dispatcher broadcasts the transfer and reconciles status. The
// broadcasting intent (signed tx hash plus nonce) is committed before the
// send, so a crash mid-broadcast is resolved from the chain instead of
// re-signing a second payout.
type Withdrawal struct {
	ID        uuid.UUID        `json:"id"`
	Address   string           `json:"address"`
	Amount    *big.Int         `json:"amount_wei"`
	ClientID  string           `json:"client_id"`
	Status    WithdrawalStatus `json:"status"`
	TxHash    string           `json:"tx_hash,omitempty"`
	Nonce     int64            `json:"nonce,omitempty"` // -1 until a broadcast intent is recorded
	Attempts  int              `json:"attempts"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
