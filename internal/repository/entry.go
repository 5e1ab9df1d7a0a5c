package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/infra"
)

// EntryRepository appends and queries the append-only ledger.
type EntryRepository struct{}

// NewEntryRepository returns a pgx-backed ledger entry repository.
func NewEntryRepository() *EntryRepository {
	return &EntryRepository{}
}

// ErrDuplicateKey is returned when the unique index on ref->>'client_id'
// rejects an insert.
var ErrDuplicateKey = errors.New("ledger: duplicate client_id")

// FindByClientID returns the entry carrying the given idempotency key, or nil.
func (r *EntryRepository) FindByClientID(ctx context.Context, db DBTX, clientID string) (*domain.LedgerEntry, error) {
	row := db.QueryRow(ctx, `
		SELECT id, account_ref, op_type, amount, locked_delta, ref, created_at
		FROM ledger WHERE ref->>'client_id' = $1`, clientID)
	entry, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("find entry by client_id: %w", err)
	}
	return entry, nil
}

// Insert appends one ledger row. A unique-violation on the client_id index
// surfaces as ErrDuplicateKey.
func (r *EntryRepository) Insert(ctx context.Context, tx pgx.Tx, p domain.Posting) (*domain.LedgerEntry, error) {
	refJSON, err := json.Marshal(p.Ref)
	if err != nil {
		return nil, fmt.Errorf("marshal ref: %w", err)
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO ledger (account_ref, op_type, amount, locked_delta, ref)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, account_ref, op_type, amount, locked_delta, ref, created_at`,
		p.AccountRef,
		string(p.Type),
		infra.BigIntToNumeric(p.Amount),
		infra.BigIntToNumeric(p.LockedDelta),
		refJSON,
	)
	entry, err := scanEntry(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}
	return entry, nil
}

// SumAll returns Σ(amount + locked_delta) over the whole ledger. Zero when
// the double-entry invariant holds.
func (r *EntryRepository) SumAll(ctx context.Context, db DBTX) (*big.Int, error) {
	var sum pgtype.Numeric
	err := db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount + locked_delta), 0) FROM ledger`).Scan(&sum)
	if err != nil {
		return nil, fmt.Errorf("sum ledger: %w", err)
	}
	return infra.NumericToBigInt(sum)
}

// AccountSums returns per-account (Σ amount, Σ locked_delta) for
// reconciliation against the snapshot table.
func (r *EntryRepository) AccountSums(ctx context.Context, db DBTX) (map[string][2]*big.Int, error) {
	rows, err := db.Query(ctx, `
		SELECT account_ref, COALESCE(SUM(amount), 0), COALESCE(SUM(locked_delta), 0)
		FROM ledger GROUP BY account_ref`)
	if err != nil {
		return nil, fmt.Errorf("account sums: %w", err)
	}
	defer rows.Close()

	out := make(map[string][2]*big.Int)
	for rows.Next() {
		var ref string
		var amountSum, lockedSum pgtype.Numeric
		if err := rows.Scan(&ref, &amountSum, &lockedSum); err != nil {
			return nil, err
		}
		a, err := infra.NumericToBigInt(amountSum)
		if err != nil {
			return nil, err
		}
		l, err := infra.NumericToBigInt(lockedSum)
		if err != nil {
			return nil, err
		}
		out[ref] = [2]*big.Int{a, l}
	}
	return out, rows.Err()
}

// ListOrphanedStakes returns bet_stake entries whose round never settled and
// that have no later row (settlement or refund) for the same bet. These are
// stakes stranded in locked balances by a crash mid-round.
func (r *EntryRepository) ListOrphanedStakes(ctx context.Context, db DBTX) ([]*domain.LedgerEntry, error) {
	rows, err := db.Query(ctx, `
		SELECT l.id, l.account_ref, l.op_type, l.amount, l.locked_delta, l.ref, l.created_at
		FROM ledger l
		JOIN rounds r ON r.id = l.ref->>'round_id'
		WHERE l.op_type = 'bet_stake'
		  AND r.status <> 'settled'
		  AND NOT EXISTS (
			SELECT 1 FROM ledger x
			WHERE x.ref->>'bet_id' = l.ref->>'bet_id'
			  AND x.id <> l.id
		  )
		ORDER BY l.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list orphaned stakes: %w", err)
	}
	defer rows.Close()

	var out []*domain.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// CountDuplicateClientIDs counts client_ids that appear on more than one row.
func (r *EntryRepository) CountDuplicateClientIDs(ctx context.Context, db DBTX) (int, error) {
	var n int
	err := db.QueryRow(ctx, `
		SELECT COUNT(*) FROM (
			SELECT ref->>'client_id' FROM ledger
			WHERE ref->>'client_id' IS NOT NULL
			GROUP BY ref->>'client_id' HAVING COUNT(*) > 1
		) dups`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count duplicate client_ids: %w", err)
	}
	return n, nil
}

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var amount, lockedDelta pgtype.Numeric
	var refJSON []byte
	var opType string

	err := row.Scan(&e.ID, &e.AccountRef, &opType, &amount, &lockedDelta, &refJSON, &e.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	e.Type = domain.EntryType(opType)
	if e.Amount, err = infra.NumericToBigInt(amount); err != nil {
		return nil, err
	}
	if e.LockedDelta, err = infra.NumericToBigInt(lockedDelta); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(refJSON, &e.Ref); err != nil {
		return nil, fmt.Errorf("unmarshal ref: %w", err)
	}
	return &e, nil
}
