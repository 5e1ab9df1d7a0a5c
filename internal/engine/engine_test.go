package engine

import (
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/policy"
)

// bettingEngine builds an engine frozen in the betting phase. Only the
// validation paths that run before the stake reservation are exercised here;
// everything past that point needs a database.
func bettingEngine() *Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &Engine{
		emergency: policy.NewEmergency(logger),
		logger:    logger,
		phase:     PhaseBetting,
		round:     &domain.Round{ID: "r-test", Status: domain.RoundBetting},
		book:      NewBook(),
	}
}

func TestAcceptBetRejectsDuplicateClientID(t *testing.T) {
	e := bettingEngine()
	e.book.Add(&domain.Bet{
		ID:       uuid.New(),
		RoundID:  e.round.ID,
		Player:   "0x1111111111111111111111111111111111111111",
		Stake:    big.NewInt(1_000),
		Funding:  domain.BetFunding{Type: domain.FundingBalance},
		Status:   domain.BetOpen,
		ClientID: "bet-1",
		PlacedAt: time.Now(),
	})

	bet, err := e.acceptBet(PlaceBetParams{
		Player:   "0x2222222222222222222222222222222222222222",
		ClientID: "bet-1",
		Stake:    big.NewInt(1_000),
		Funding:  domain.BetFunding{Type: domain.FundingBalance},
	})

	require.Error(t, err)
	assert.Nil(t, bet)
	var app *domain.AppError
	require.ErrorAs(t, err, &app)
	assert.Equal(t, "DUPLICATE", app.Code)
	// The original acceptance is untouched.
	assert.Equal(t, 1, e.book.Count())
}

func TestAcceptBetRejectsOutsideBettingPhase(t *testing.T) {
	for _, phase := range []string{PhaseIdle, PhaseRunning, PhaseSettling} {
		t.Run(phase, func(t *testing.T) {
			e := bettingEngine()
			e.phase = phase

			bet, err := e.acceptBet(PlaceBetParams{
				Player:   "0x2222222222222222222222222222222222222222",
				ClientID: "bet-1",
				Stake:    big.NewInt(1_000),
			})

			assert.Nil(t, bet)
			var app *domain.AppError
			require.ErrorAs(t, err, &app)
			assert.Equal(t, "WRONG_PHASE", app.Code)
		})
	}
}

func TestAcceptBetRejectsUnderEmergencyLatch(t *testing.T) {
	e := bettingEngine()
	e.emergency.Trip("ledger drift")

	bet, err := e.acceptBet(PlaceBetParams{
		Player:   "0x2222222222222222222222222222222222222222",
		ClientID: "bet-1",
		Stake:    big.NewInt(1_000),
	})

	assert.Nil(t, bet)
	var app *domain.AppError
	require.ErrorAs(t, err, &app)
	assert.Equal(t, "SOLVENCY_BLOCKED", app.Code)
}
