package domain

import (
	"math/big"
	"time"
)

// HouseAccount is the sentinel counter-account for all double-entry postings.
// It represents custody liability and is the only account allowed to carry a
// negative available balance.
const HouseAccount = "house"

// Account is the per-address balance snapshot. Accounts are created lazily on
// first credit and keyed by lowercased hex address.
type Account struct {
	Address   string    `json:"address"`
	Available *big.Int  `json:"available_wei"`
	Locked    *big.Int  `json:"locked_wei"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Total returns available + locked.
func (a *Account) Total() *big.Int {
	return new(big.Int).Add(a.Available, a.Locked)
}
