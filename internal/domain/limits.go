package domain

import (
	"math/big"
	"time"
)

// Limits is the admin-tunable betting policy, persisted as a single versioned
// row and cached in memory.
type Limits struct {
	MinStake           *big.Int  `json:"min_stake_wei"`
	MaxStake           *big.Int  `json:"max_stake_wei"`
	CapMultPPM         int64     `json:"cap_mult_ppm"`
	LiabilityFactorPct int64     `json:"liability_factor_pct"`
	PerPlayerCooldown  int64     `json:"per_player_cooldown_ms"`
	RoundCap           int       `json:"round_cap"`
	Version            int64     `json:"version"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Validate rejects internally inconsistent limits.
func (l *Limits) Validate() error {
	if l.MinStake == nil || l.MaxStake == nil {
		return ErrInvalidInput("min_stake and max_stake are required")
	}
	if l.MinStake.Sign() <= 0 {
		return ErrInvalidInput("min_stake must be positive")
	}
	if l.MaxStake.Cmp(l.MinStake) < 0 {
		return ErrInvalidInput("max_stake must be >= min_stake")
	}
	if l.CapMultPPM < 1_000_000 {
		return ErrInvalidInput("cap_mult_ppm must be >= 1.00x")
	}
	if l.LiabilityFactorPct <= 0 {
		return ErrInvalidInput("liability_factor_pct must be positive")
	}
	if l.RoundCap <= 0 {
		return ErrInvalidInput("round_cap must be positive")
	}
	return nil
}
