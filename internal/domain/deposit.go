package domain

import (
	"fmt"
	"math/big"
	"time"
)

// ConfirmedDeposit is a chain deposit credited to the ledger. The idempotency
// key is TxHash:LogIndex.
type ConfirmedDeposit struct {
	TxHash      string    `json:"tx_hash"`
	LogIndex    uint32    `json:"log_index"`
	Address     string    `json:"address"`
	Amount      *big.Int  `json:"amount_wei"`
	BlockNumber uint64    `json:"block_number"`
	CreditedAt  time.Time `json:"credited_at"`
}

// Key returns the tx_hash:log_index idempotency key.
func (d *ConfirmedDeposit) Key() string {
	return DepositKey(d.TxHash, d.LogIndex)
}

// DepositKey builds the canonical deposit idempotency key.
func DepositKey(txHash string, logIndex uint32) string {
	return fmt.Sprintf("%s:%d", txHash, logIndex)
}

// DepositHint is a client-registered pending deposit, used only to resolve
// ambiguous sender attribution. Hints never cause credits by themselves.
type DepositHint struct {
	TxHash       string    `json:"tx_hash"`
	Address      string    `json:"address"`
	Amount       *big.Int  `json:"amount_wei"`
	RegisteredAt time.Time `json:"registered_at"`
}
