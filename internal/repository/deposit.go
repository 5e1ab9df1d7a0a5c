package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/infra"
)

// DepositRepository persists confirmed deposits, registration hints, and the
// indexer cursor.
type DepositRepository struct{}

// NewDepositRepository returns a pgx-backed deposit repository.
func NewDepositRepository() *DepositRepository {
	return &DepositRepository{}
}

// Insert records a confirmed deposit. Returns false if the
// (tx_hash, log_index) key already exists.
func (r *DepositRepository) Insert(ctx context.Context, tx pgx.Tx, d *domain.ConfirmedDeposit) (bool, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO deposits (tx_hash, log_index, address, amount, block_number, credited_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (tx_hash, log_index) DO NOTHING`,
		d.TxHash, d.LogIndex, d.Address, infra.BigIntToNumeric(d.Amount), d.BlockNumber)
	if err != nil {
		return false, fmt.Errorf("insert deposit: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// FindByTxHash returns the confirmed deposit for a tx hash, or nil.
func (r *DepositRepository) FindByTxHash(ctx context.Context, db DBTX, txHash string) (*domain.ConfirmedDeposit, error) {
	row := db.QueryRow(ctx, `
		SELECT tx_hash, log_index, address, amount, block_number, credited_at
		FROM deposits WHERE tx_hash = $1
		ORDER BY log_index ASC LIMIT 1`, txHash)

	var d domain.ConfirmedDeposit
	var amount pgtype.Numeric
	err := row.Scan(&d.TxHash, &d.LogIndex, &d.Address, &amount, &d.BlockNumber, &d.CreditedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan deposit: %w", err)
	}
	if d.Amount, err = infra.NumericToBigInt(amount); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListSince returns deposits credited at or after the given block, oldest
// first. The indexer re-verifies these against the canonical chain inside the
// reorg window.
func (r *DepositRepository) ListSince(ctx context.Context, db DBTX, fromBlock uint64) ([]domain.ConfirmedDeposit, error) {
	rows, err := db.Query(ctx, `
		SELECT tx_hash, log_index, address, amount, block_number, credited_at
		FROM deposits WHERE block_number >= $1
		ORDER BY block_number ASC, log_index ASC`, fromBlock)
	if err != nil {
		return nil, fmt.Errorf("list deposits since block: %w", err)
	}
	defer rows.Close()

	var out []domain.ConfirmedDeposit
	for rows.Next() {
		var d domain.ConfirmedDeposit
		var amount pgtype.Numeric
		if err := rows.Scan(&d.TxHash, &d.LogIndex, &d.Address, &amount, &d.BlockNumber, &d.CreditedAt); err != nil {
			return nil, fmt.Errorf("scan deposit: %w", err)
		}
		if d.Amount, err = infra.NumericToBigInt(amount); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpsertHint stores or refreshes a client-registered pending deposit.
func (r *DepositRepository) UpsertHint(ctx context.Context, db DBTX, h *domain.DepositHint) error {
	_, err := db.Exec(ctx, `
		INSERT INTO deposit_hints (tx_hash, address, amount, registered_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (tx_hash) DO UPDATE SET address = $2, amount = $3, registered_at = now()`,
		h.TxHash, h.Address, infra.BigIntToNumeric(h.Amount))
	if err != nil {
		return fmt.Errorf("upsert deposit hint: %w", err)
	}
	return nil
}

// FindHint returns the hint for a tx hash, or nil.
func (r *DepositRepository) FindHint(ctx context.Context, db DBTX, txHash string) (*domain.DepositHint, error) {
	row := db.QueryRow(ctx, `
		SELECT tx_hash, address, amount, registered_at
		FROM deposit_hints WHERE tx_hash = $1`, txHash)

	var h domain.DepositHint
	var amount pgtype.Numeric
	err := row.Scan(&h.TxHash, &h.Address, &amount, &h.RegisteredAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan deposit hint: %w", err)
	}
	if h.Amount, err = infra.NumericToBigInt(amount); err != nil {
		return nil, err
	}
	return &h, nil
}

// Cursor returns the last fully-processed block number.
func (r *DepositRepository) Cursor(ctx context.Context, db DBTX) (uint64, error) {
	var block uint64
	err := db.QueryRow(ctx, `
		SELECT last_block FROM deposit_cursor WHERE id = 1`).Scan(&block)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("read cursor: %w", err)
	}
	return block, nil
}

// AdvanceCursor moves the cursor forward. The cursor is monotonic: a smaller
// block number is a no-op.
func (r *DepositRepository) AdvanceCursor(ctx context.Context, db DBTX, block uint64) error {
	_, err := db.Exec(ctx, `
		INSERT INTO deposit_cursor (id, last_block) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET last_block = GREATEST(deposit_cursor.last_block, $1)`,
		block)
	if err != nil {
		return fmt.Errorf("advance cursor: %w", err)
	}
	return nil
}
