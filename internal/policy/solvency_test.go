package policy

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestSolvency(hotBalance int64, factorPct int64) *Solvency {
	s := NewSolvency(big.NewInt(100), big.NewInt(10_000), factorPct, discardLogger())
	s.SetHotBalance(big.NewInt(hotBalance))
	return s
}

func TestLiabilityAllowedWithinBudget(t *testing.T) {
	// 1000 wei hot balance at 50% gives a 500 wei budget.
	s := newTestSolvency(1000, 50)

	assert.True(t, s.LiabilityAllowed(big.NewInt(300), big.NewInt(200)))
	assert.False(t, s.LiabilityAllowed(big.NewInt(300), big.NewInt(201)))
}

func TestLiabilityFactorUpdate(t *testing.T) {
	s := newTestSolvency(1000, 50)
	assert.False(t, s.LiabilityAllowed(big.NewInt(0), big.NewInt(600)))

	s.SetLiabilityFactor(100)
	assert.True(t, s.LiabilityAllowed(big.NewInt(0), big.NewInt(600)))
}

func TestRecommendation(t *testing.T) {
	s := newTestSolvency(1000, 50)
	assert.Equal(t, "ok", s.Recommendation())

	s.SetHotBalance(big.NewInt(50))
	assert.Equal(t, "refill hot wallet", s.Recommendation())

	s.SetHotBalance(big.NewInt(20_000))
	assert.Equal(t, "sweep to cold", s.Recommendation())
}
