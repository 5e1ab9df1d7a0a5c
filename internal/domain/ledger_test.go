package domain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBalancedPostings(t *testing.T) {
	stake := big.NewInt(1000)
	postings := []Posting{
		{AccountRef: "0xabc", Type: EntryBetStake, Amount: new(big.Int).Neg(stake), LockedDelta: stake},
		{AccountRef: HouseAccount, Type: EntryBetStake, Amount: big.NewInt(0), LockedDelta: big.NewInt(0)},
	}
	assert.True(t, Balanced(postings))
}

func TestUnbalancedPostings(t *testing.T) {
	postings := []Posting{
		{AccountRef: "0xabc", Type: EntryDeposit, Amount: big.NewInt(500), LockedDelta: big.NewInt(0)},
		{AccountRef: HouseAccount, Type: EntryDeposit, Amount: big.NewInt(-499), LockedDelta: big.NewInt(0)},
	}
	assert.False(t, Balanced(postings))
}

func TestBalancedAcrossLockedDelta(t *testing.T) {
	// A win moves locked back to available on the player side and debits the
	// house. The sum over amount+locked_delta still nets to zero.
	postings := []Posting{
		{AccountRef: "0xabc", Type: EntryBetWin, Amount: big.NewInt(2500), LockedDelta: big.NewInt(-1000)},
		{AccountRef: HouseAccount, Type: EntryBetWin, Amount: big.NewInt(-1500), LockedDelta: big.NewInt(0)},
	}
	assert.True(t, Balanced(postings))
}

func TestHouseRefKey(t *testing.T) {
	assert.Equal(t, "win:abc#house", HouseRefKey("win:abc"))
	assert.NotEqual(t, HouseRefKey("a"), HouseRefKey("b"))
}
