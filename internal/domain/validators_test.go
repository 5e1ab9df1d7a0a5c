package domain

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	addr, err := NormalizeAddress("0xABCDEF0123456789abcdef0123456789ABCDEF01")
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", addr)

	for _, bad := range []string{"", "0x123", "abcdef0123456789abcdef0123456789abcdef01", "0xzzcdef0123456789abcdef0123456789abcdef01"} {
		_, err := NormalizeAddress(bad)
		assert.Error(t, err, bad)
	}
}

func TestValidateTxHash(t *testing.T) {
	assert.NoError(t, ValidateTxHash("0x"+strings.Repeat("ab", 32)))
	assert.Error(t, ValidateTxHash("0x"+strings.Repeat("ab", 31)))
	assert.Error(t, ValidateTxHash(strings.Repeat("ab", 33)))
}

func TestParseWei(t *testing.T) {
	v, err := ParseWei("1000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_000_000_000_000_000_000), v)

	for _, bad := range []string{"", "-1", "1.5", "0x10", "one"} {
		_, err := ParseWei(bad)
		assert.Error(t, err, bad)
	}
}

func TestValidateClientID(t *testing.T) {
	assert.NoError(t, ValidateClientID("bet-42"))
	assert.Error(t, ValidateClientID(""))
	assert.Error(t, ValidateClientID(strings.Repeat("x", 129)))
}

func TestValidatePositiveAmount(t *testing.T) {
	assert.NoError(t, ValidatePositiveAmount(big.NewInt(1)))
	assert.Error(t, ValidatePositiveAmount(nil))
	assert.Error(t, ValidatePositiveAmount(big.NewInt(0)))
	assert.Error(t, ValidatePositiveAmount(big.NewInt(-5)))
}
