package policy

import (
	"log/slog"
	"math/big"
	"sync"
)

// Solvency tracks the hot-wallet balance against the configured thresholds
// and bounds aggregate bet liability. The wallet monitor feeds it; the bet
// book consults it before accepting stakes.
type Solvency struct {
	mu              sync.RWMutex
	hotBalance      *big.Int
	hotMin          *big.Int
	hotMax          *big.Int
	liabilityFactor int64 // percent
	logger          *slog.Logger
}

// NewSolvency creates a solvency manager with static thresholds.
func NewSolvency(hotMin, hotMax *big.Int, liabilityFactorPct int64, logger *slog.Logger) *Solvency {
	return &Solvency{
		hotBalance:      new(big.Int),
		hotMin:          hotMin,
		hotMax:          hotMax,
		liabilityFactor: liabilityFactorPct,
		logger:          logger,
	}
}

// SetHotBalance records the latest observed hot-wallet balance and logs
// refill/sweep recommendations on threshold crossings.
func (s *Solvency) SetHotBalance(balance *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hotBalance = new(big.Int).Set(balance)
	if balance.Cmp(s.hotMin) < 0 {
		s.logger.Warn("hot wallet below minimum, refill required",
			"balance_wei", balance.String(), "min_wei", s.hotMin.String())
	}
	if balance.Cmp(s.hotMax) > 0 {
		s.logger.Warn("hot wallet above maximum, sweep to cold",
			"balance_wei", balance.String(), "max_wei", s.hotMax.String())
	}
}

// HotBalance returns the last observed hot-wallet balance.
func (s *Solvency) HotBalance() *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return new(big.Int).Set(s.hotBalance)
}

// SetLiabilityFactor updates the factor from the limits surface.
func (s *Solvency) SetLiabilityFactor(pct int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liabilityFactor = pct
}

// LiabilityAllowed reports whether the aggregate open liability plus the
// candidate bet's capped payout fits inside liability_factor × B_hot.
func (s *Solvency) LiabilityAllowed(openLiability, candidate *big.Int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := new(big.Int).Add(openLiability, candidate)
	budget := new(big.Int).Mul(s.hotBalance, big.NewInt(s.liabilityFactor))
	budget.Div(budget, big.NewInt(100))
	return total.Cmp(budget) <= 0
}

// Recommendation summarizes the wallet posture for the admin surface.
func (s *Solvency) Recommendation() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.hotBalance.Cmp(s.hotMin) < 0:
		return "refill hot wallet"
	case s.hotBalance.Cmp(s.hotMax) > 0:
		return "sweep to cold"
	default:
		return "ok"
	}
}
