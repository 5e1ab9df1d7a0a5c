package repository

import (
	"context"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/infra"
)

// AccountRepository reads and mutates account snapshots.
type AccountRepository struct{}

// NewAccountRepository returns a pgx-backed account repository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{}
}

func (r *AccountRepository) FindByAddress(ctx context.Context, db DBTX, address string) (*domain.Account, error) {
	row := db.QueryRow(ctx, `
		SELECT address, available, locked, version, created_at, updated_at
		FROM accounts WHERE address = $1`, address)
	return scanAccount(row)
}

// LockForUpdate acquires a row-level lock. Must be called within a transaction.
func (r *AccountRepository) LockForUpdate(ctx context.Context, tx pgx.Tx, address string) (*domain.Account, error) {
	row := tx.QueryRow(ctx, `
		SELECT address, available, locked, version, created_at, updated_at
		FROM accounts WHERE address = $1 FOR UPDATE`, address)
	return scanAccount(row)
}

// EnsureExists creates the account row if missing and locks it. Accounts are
// created lazily on first credit.
func (r *AccountRepository) EnsureExists(ctx context.Context, tx pgx.Tx, address string) (*domain.Account, error) {
	_, err := tx.Exec(ctx, `
		INSERT INTO accounts (address, available, locked, version)
		VALUES ($1, 0, 0, 0)
		ON CONFLICT (address) DO NOTHING`, address)
	if err != nil {
		return nil, fmt.Errorf("ensure account: %w", err)
	}
	return r.LockForUpdate(ctx, tx, address)
}

// ApplyDelta updates balances with server-side arithmetic and bumps the
// version counter. The accounts table carries CHECK constraints that reject
// negative available/locked for every account except the house sentinel, so
// a violated invariant fails the whole transaction.
func (r *AccountRepository) ApplyDelta(ctx context.Context, tx pgx.Tx, address string, availableDelta, lockedDelta *big.Int) (*domain.Account, error) {
	row := tx.QueryRow(ctx, `
		UPDATE accounts
		SET available = available + $1,
		    locked = locked + $2,
		    version = version + 1,
		    updated_at = now()
		WHERE address = $3
		RETURNING address, available, locked, version, created_at, updated_at`,
		infra.BigIntToNumeric(availableDelta),
		infra.BigIntToNumeric(lockedDelta),
		address,
	)
	return scanAccount(row)
}

// SumBalances returns Σ(available+locked) over all accounts except house.
func (r *AccountRepository) SumBalances(ctx context.Context, db DBTX) (*big.Int, error) {
	var sum pgtype.Numeric
	err := db.QueryRow(ctx, `
		SELECT COALESCE(SUM(available + locked), 0) FROM accounts WHERE address <> $1`,
		domain.HouseAccount).Scan(&sum)
	if err != nil {
		return nil, fmt.Errorf("sum balances: %w", err)
	}
	return infra.NumericToBigInt(sum)
}

// ListNegative returns addresses whose available or locked went negative,
// excluding the house sentinel.
func (r *AccountRepository) ListNegative(ctx context.Context, db DBTX) ([]string, error) {
	rows, err := db.Query(ctx, `
		SELECT address FROM accounts
		WHERE address <> $1 AND (available < 0 OR locked < 0)`, domain.HouseAccount)
	if err != nil {
		return nil, fmt.Errorf("list negative accounts: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, rows.Err()
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var avail, locked pgtype.Numeric
	err := row.Scan(&a.Address, &avail, &locked, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	if a.Available, err = infra.NumericToBigInt(avail); err != nil {
		return nil, fmt.Errorf("account available: %w", err)
	}
	if a.Locked, err = infra.NumericToBigInt(locked); err != nil {
		return nil, fmt.Errorf("account locked: %w", err)
	}
	return &a, nil
}
