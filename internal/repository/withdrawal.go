package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/infra"
)

// WithdrawalRepository persists the payout queue.
type WithdrawalRepository struct{}

// NewWithdrawalRepository returns a pgx-backed withdrawal repository.
func NewWithdrawalRepository() *WithdrawalRepository {
	return &WithdrawalRepository{}
}

const withdrawalColumns = `id, address, amount, client_id, status, COALESCE(tx_hash, ''), COALESCE(nonce, -1), attempts, created_at, updated_at`

func (r *WithdrawalRepository) Insert(ctx context.Context, tx pgx.Tx, w *domain.Withdrawal) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO withdrawals (id, address, amount, client_id, status, attempts)
		VALUES ($1, $2, $3, $4, $5, 0)`,
		w.ID, w.Address, infra.BigIntToNumeric(w.Amount), w.ClientID, string(w.Status))
	if err != nil {
		return fmt.Errorf("insert withdrawal: %w", err)
	}
	return nil
}

// NextQueued claims the oldest queued or retrying withdrawal with a row lock,
// skipping rows locked by another worker. Broadcasting rows are never
// reclaimed here; RecoverInFlight resolves them against the chain first.
func (r *WithdrawalRepository) NextQueued(ctx context.Context, tx pgx.Tx) (*domain.Withdrawal, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+withdrawalColumns+`
		FROM withdrawals
		WHERE status IN ('queued', 'retrying')
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`)
	return scanWithdrawal(row)
}

func (r *WithdrawalRepository) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Withdrawal, error) {
	row := db.QueryRow(ctx, `
		SELECT `+withdrawalColumns+`
		FROM withdrawals WHERE id = $1`, id)
	return scanWithdrawal(row)
}

// ListInFlight returns the withdrawals whose signed transfer may already be
// on the chain, oldest first.
func (r *WithdrawalRepository) ListInFlight(ctx context.Context, db DBTX) ([]domain.Withdrawal, error) {
	rows, err := db.Query(ctx, `
		SELECT `+withdrawalColumns+`
		FROM withdrawals
		WHERE status IN ('broadcasting', 'broadcast')
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list in-flight withdrawals: %w", err)
	}
	defer rows.Close()

	var out []domain.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

// MarkBroadcasting records the signed transfer's hash and nonce as the
// broadcast intent, bumping the attempt counter.
func (r *WithdrawalRepository) MarkBroadcasting(ctx context.Context, db DBTX, id uuid.UUID, txHash string, nonce uint64) error {
	_, err := db.Exec(ctx, `
		UPDATE withdrawals
		SET status = $1, tx_hash = $2, nonce = $3,
		    attempts = attempts + 1, updated_at = now()
		WHERE id = $4`,
		string(domain.WithdrawalBroadcasting), txHash, int64(nonce), id)
	if err != nil {
		return fmt.Errorf("mark withdrawal broadcasting: %w", err)
	}
	return nil
}

// UpdateStatus flips the row status, optionally recording the broadcast tx
// hash and bumping the attempt counter.
func (r *WithdrawalRepository) UpdateStatus(ctx context.Context, db DBTX, id uuid.UUID, status domain.WithdrawalStatus, txHash string, bumpAttempts bool) error {
	bump := 0
	if bumpAttempts {
		bump = 1
	}
	_, err := db.Exec(ctx, `
		UPDATE withdrawals
		SET status = $1,
		    tx_hash = COALESCE(NULLIF($2, ''), tx_hash),
		    attempts = attempts + $3,
		    updated_at = now()
		WHERE id = $4`,
		string(status), txHash, bump, id)
	if err != nil {
		return fmt.Errorf("update withdrawal status: %w", err)
	}
	return nil
}

func scanWithdrawal(row pgx.Row) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	var amount pgtype.Numeric
	var status string
	err := row.Scan(&w.ID, &w.Address, &amount, &w.ClientID, &status, &w.TxHash, &w.Nonce, &w.Attempts, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan withdrawal: %w", err)
	}
	w.Status = domain.WithdrawalStatus(status)
	if w.Amount, err = infra.NumericToBigInt(amount); err != nil {
		return nil, err
	}
	return &w, nil
}
