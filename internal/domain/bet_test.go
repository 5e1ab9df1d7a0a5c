package domain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWinPayoutFloors(t *testing.T) {
	// 999 wei at 1.5x floors to 1498, not 1498.5.
	assert.Equal(t, big.NewInt(1498), WinPayout(big.NewInt(999), 1_500_000))
	assert.Equal(t, big.NewInt(2000), WinPayout(big.NewInt(1000), 2_000_000))
	assert.Equal(t, big.NewInt(1000), WinPayout(big.NewInt(1000), 1_000_000))
}

func TestMaxLiabilityUsesCap(t *testing.T) {
	b := &Bet{Stake: big.NewInt(1000)}
	assert.Equal(t, big.NewInt(100_000), b.MaxLiability(100_000_000))
}

func TestMaxLiabilityBoundedByAutoCashout(t *testing.T) {
	b := &Bet{Stake: big.NewInt(1000), AutoCashoutPPM: 2_000_000}
	assert.Equal(t, big.NewInt(2000), b.MaxLiability(100_000_000))

	// An auto-cashout above the cap does not raise liability.
	b.AutoCashoutPPM = 200_000_000
	assert.Equal(t, big.NewInt(100_000), b.MaxLiability(100_000_000))
}

func TestRoundStatusAdvancesStrictly(t *testing.T) {
	assert.True(t, RoundPending.CanAdvance(RoundBetting))
	assert.True(t, RoundBetting.CanAdvance(RoundRunning))
	assert.True(t, RoundRunning.CanAdvance(RoundSettled))

	assert.False(t, RoundBetting.CanAdvance(RoundSettled))
	assert.False(t, RoundSettled.CanAdvance(RoundBetting))
	assert.False(t, RoundRunning.CanAdvance(RoundRunning))
	assert.False(t, RoundStatus("bogus").CanAdvance(RoundBetting))
}
