package infra

import (
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5/pgtype"
)

// NumericToBigInt converts a pgtype.Numeric (from PostgreSQL numeric(78,0))
// to a wei amount. Returns an error if the value is NULL or carries
// fractional digits.
func NumericToBigInt(n pgtype.Numeric) (*big.Int, error) {
	if !n.Valid {
		return nil, fmt.Errorf("numeric value is NULL")
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return nil, fmt.Errorf("numeric value is not finite")
	}

	// pgtype.Numeric stores value as Int * 10^Exp
	bi := new(big.Int).Set(n.Int)

	if n.Exp > 0 {
		multiplier := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.Exp)), nil)
		bi.Mul(bi, multiplier)
	} else if n.Exp < 0 {
		return nil, fmt.Errorf("numeric value %s has fractional digits", bi.String())
	}

	return bi, nil
}

// BigIntToNumeric converts a wei amount to pgtype.Numeric for writing to
// PostgreSQL numeric(78,0).
func BigIntToNumeric(v *big.Int) pgtype.Numeric {
	if v == nil {
		v = new(big.Int)
	}
	return pgtype.Numeric{
		Int:              new(big.Int).Set(v),
		Exp:              0,
		NaN:              false,
		InfinityModifier: pgtype.Finite,
		Valid:            true,
	}
}
