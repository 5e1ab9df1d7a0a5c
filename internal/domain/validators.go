package domain

import (
	"math/big"
	"regexp"
	"strings"
)

var addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// NormalizeAddress validates a hex address and lowercases it. Account keys
// are always the normalized form.
func NormalizeAddress(addr string) (string, error) {
	if !addressRe.MatchString(addr) {
		return "", ErrInvalidInput("invalid address")
	}
	return strings.ToLower(addr), nil
}

var txHashRe = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// ValidateTxHash checks a 32-byte hex transaction hash.
func ValidateTxHash(h string) error {
	if !txHashRe.MatchString(h) {
		return ErrInvalidInput("invalid tx hash")
	}
	return nil
}

// ValidatePositiveAmount rejects nil, zero, and negative wei amounts.
func ValidatePositiveAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidInput("amount must be positive")
	}
	return nil
}

// ParseWei parses a decimal wei string.
func ParseWei(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, ErrInvalidInput("invalid wei amount")
	}
	return v, nil
}

// ValidateClientID bounds the caller-supplied idempotency key.
func ValidateClientID(id string) error {
	if id == "" {
		return ErrInvalidInput("client_id is required")
	}
	if len(id) > 128 {
		return ErrInvalidInput("client_id too long")
	}
	return nil
}
