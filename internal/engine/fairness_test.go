package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitHashMatchesSeed(t *testing.T) {
	seed, err := GenerateServerSeed()
	require.NoError(t, err)
	require.Len(t, seed, 64)

	commit, err := CommitHash(seed)
	require.NoError(t, err)
	assert.Len(t, commit, 64)

	again, err := CommitHash(seed)
	require.NoError(t, err)
	assert.Equal(t, commit, again)
}

func TestCommitHashRejectsBadHex(t *testing.T) {
	_, err := CommitHash("not-hex")
	assert.Error(t, err)
}

func TestClientEntropyDependsOnOrder(t *testing.T) {
	a := ClientEntropy([]string{"bet-1", "bet-2"})
	b := ClientEntropy([]string{"bet-2", "bet-1"})
	assert.NotEqual(t, a, b)

	empty := ClientEntropy(nil)
	assert.Len(t, empty, 64)
}

func TestCrashPointIsDeterministic(t *testing.T) {
	seed, err := GenerateServerSeed()
	require.NoError(t, err)
	entropy := ClientEntropy([]string{"a", "b", "c"})

	first, err := CrashPointPPM(seed, entropy, 0.01)
	require.NoError(t, err)
	second, err := CrashPointPPM(seed, entropy, 0.01)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCrashPointBoundsAndGranularity(t *testing.T) {
	entropy := ClientEntropy([]string{"x"})
	for i := 0; i < 500; i++ {
		seed, err := GenerateServerSeed()
		require.NoError(t, err)

		ppm, err := CrashPointPPM(seed, entropy, 0.01)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, ppm, MinCrashPPM)
		assert.LessOrEqual(t, ppm, MaxCrashPPM)
		// Derivation works in hundredths of x.
		assert.Zero(t, ppm%10_000)
	}
}

func TestCrashPointChangesWithEntropy(t *testing.T) {
	seed, err := GenerateServerSeed()
	require.NoError(t, err)

	// Two entropies agreeing on the crash point is possible but vanishingly
	// unlikely across ten independent draws.
	seen := make(map[int64]bool)
	for i := 0; i < 10; i++ {
		entropy := ClientEntropy([]string{string(rune('a' + i))})
		ppm, err := CrashPointPPM(seed, entropy, 0.01)
		require.NoError(t, err)
		seen[ppm] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestBuildProofRoundTrips(t *testing.T) {
	seed, err := GenerateServerSeed()
	require.NoError(t, err)
	entropy := ClientEntropy([]string{"bet-1"})

	proof, err := BuildProof("r-1", seed, entropy, 0.01)
	require.NoError(t, err)

	assert.Equal(t, "r-1", proof.RoundID)
	assert.Equal(t, seed, proof.ServerSeed)
	assert.Equal(t, entropy, proof.ClientEntropy)

	expected, err := CrashPointPPM(seed, entropy, 0.01)
	require.NoError(t, err)
	assert.Equal(t, expected, proof.CrashPPM)

	commit, err := CommitHash(seed)
	require.NoError(t, err)
	assert.Equal(t, commit, proof.CommitHash)
	require.Len(t, proof.Steps, 4)
}
