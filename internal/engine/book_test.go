package engine

import (
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunarush/crashcore/internal/domain"
)

func newTestBet(player, clientID string, stakeWei int64) *domain.Bet {
	return &domain.Bet{
		ID:       uuid.New(),
		RoundID:  "r-1",
		Player:   player,
		Stake:    big.NewInt(stakeWei),
		Funding:  domain.BetFunding{Type: domain.FundingBalance},
		Status:   domain.BetOpen,
		ClientID: clientID,
	}
}

func TestBookTracksPlayersAndClientIDs(t *testing.T) {
	book := NewBook()
	bet := newTestBet("0xaa", "c-1", 1000)
	book.Add(bet)

	assert.Equal(t, 1, book.Count())
	assert.True(t, book.HasClientID("c-1"))
	assert.Same(t, bet, book.ByClientID("c-1"))
	assert.Same(t, bet, book.ByPlayer("0xaa"))
	assert.Nil(t, book.ByPlayer("0xbb"))
}

func TestBookEntropyInputPreservesOrder(t *testing.T) {
	book := NewBook()
	first := newTestBet("0xaa", "c-1", 1000)
	second := newTestBet("0xbb", "c-2", 2000)
	book.Add(first)
	book.Add(second)

	ids := book.IDsInOrder()
	require.Len(t, ids, 2)
	assert.Equal(t, first.ID.String(), ids[0])
	assert.Equal(t, second.ID.String(), ids[1])
}

func TestBookTracksOnChainFundingTx(t *testing.T) {
	book := NewBook()
	bet := newTestBet("0xaa", "c-1", 1000)
	bet.Funding = domain.BetFunding{Type: domain.FundingOnChain, TxHash: "0xdeadbeef"}
	book.Add(bet)

	assert.True(t, book.TxFunded("0xdeadbeef"))
	assert.False(t, book.TxFunded("0xother"))
}

func TestBookOpenLiability(t *testing.T) {
	book := NewBook()

	riding := newTestBet("0xaa", "c-1", 1000)
	book.Add(riding)

	capped := newTestBet("0xbb", "c-2", 1000)
	capped.AutoCashoutPPM = 2_000_000
	book.Add(capped)

	// 1000 × 10x + 1000 × 2x.
	capMult := int64(10_000_000)
	assert.Equal(t, big.NewInt(12_000), book.OpenLiability(capMult))

	book.MarkCashed(capped, 1_500_000)
	assert.Equal(t, big.NewInt(10_000), book.OpenLiability(capMult))
}

func TestBookMarkCashedComputesFloorPayout(t *testing.T) {
	book := NewBook()
	bet := newTestBet("0xaa", "c-1", 999)
	book.Add(bet)

	payout := book.MarkCashed(bet, 1_500_000)
	// floor(999 × 1.5) = 1498.
	assert.Equal(t, big.NewInt(1498), payout)
	assert.Equal(t, domain.BetCashed, bet.Status)
	assert.Equal(t, int64(1_500_000), bet.CashoutPPM)
}

func TestBookSweepOpenMarksOnlyOpenBets(t *testing.T) {
	book := NewBook()
	cashed := newTestBet("0xaa", "c-1", 1000)
	open := newTestBet("0xbb", "c-2", 1000)
	book.Add(cashed)
	book.Add(open)
	book.MarkCashed(cashed, 2_000_000)

	swept := book.SweepOpen()
	require.Len(t, swept, 1)
	assert.Same(t, open, swept[0])
	assert.Equal(t, domain.BetLost, open.Status)
	assert.Equal(t, domain.BetCashed, cashed.Status)
	assert.Empty(t, book.Open())
}
