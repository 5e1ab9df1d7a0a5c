package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/engine"
)

func settledRound(t *testing.T, houseEdge float64) *domain.Round {
	t.Helper()
	seed, err := engine.GenerateServerSeed()
	require.NoError(t, err)
	entropy := engine.ClientEntropy([]string{"bet-a", "bet-b"})
	ppm, err := engine.CrashPointPPM(seed, entropy, houseEdge)
	require.NoError(t, err)

	return &domain.Round{
		ID:            "r-1",
		ServerSeed:    seed,
		ClientEntropy: entropy,
		CrashPointPPM: ppm,
		Status:        domain.RoundSettled,
	}
}

func TestBuildRoundProofMatchesStoredCrash(t *testing.T) {
	round := settledRound(t, 0.01)

	proof, err := buildRoundProof(round, 0.01)

	require.NoError(t, err)
	assert.Equal(t, round.CrashPointPPM, proof.CrashPPM)
	assert.Equal(t, round.ServerSeed, proof.ServerSeed)
}

func TestBuildRoundProofRejectsDriftedStoredCrash(t *testing.T) {
	// Simulates a house-edge change after settlement: the recomputed
	// transcript no longer lands on the stored crash point.
	round := settledRound(t, 0.01)
	round.CrashPointPPM += 10_000

	proof, err := buildRoundProof(round, 0.01)

	assert.Nil(t, proof)
	var app *domain.AppError
	require.ErrorAs(t, err, &app)
	assert.Equal(t, "INTERNAL", app.Code)
}
