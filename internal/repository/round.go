package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lunarush/crashcore/internal/domain"
)

// RoundRepository persists rounds. Rows are created at betting-phase entry
// and sealed at settlement.
type RoundRepository struct{}

// NewRoundRepository returns a pgx-backed round repository.
func NewRoundRepository() *RoundRepository {
	return &RoundRepository{}
}

func (r *RoundRepository) Insert(ctx context.Context, db DBTX, round *domain.Round) error {
	_, err := db.Exec(ctx, `
		INSERT INTO rounds (id, commit_hash, status, started_at)
		VALUES ($1, $2, $3, $4)`,
		round.ID, round.CommitHash, string(round.Status), round.StartedAt)
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}
	return nil
}

// MarkRunning flips a betting round to running at curve start, so a restart
// can tell an abandoned flight from a round that never took off.
func (r *RoundRepository) MarkRunning(ctx context.Context, db DBTX, id string) error {
	tag, err := db.Exec(ctx, `
		UPDATE rounds SET status = $1
		WHERE id = $2 AND status = $3`,
		string(domain.RoundRunning), id, string(domain.RoundBetting))
	if err != nil {
		return fmt.Errorf("mark round running: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark round running %s: no betting row", id)
	}
	return nil
}

// Seal writes the reveal and flips status to settled. Rejects any row that
// already advanced past running.
func (r *RoundRepository) Seal(ctx context.Context, tx pgx.Tx, round *domain.Round) error {
	tag, err := tx.Exec(ctx, `
		UPDATE rounds
		SET status = $1, server_seed = $2, client_entropy = $3,
		    crash_point_ppm = $4, settled_at = $5
		WHERE id = $6 AND status IN ('betting', 'running')`,
		string(domain.RoundSettled), round.ServerSeed, round.ClientEntropy,
		round.CrashPointPPM, round.SettledAt, round.ID)
	if err != nil {
		return fmt.Errorf("seal round: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("seal round %s: no open row", round.ID)
	}
	return nil
}

func (r *RoundRepository) FindByID(ctx context.Context, db DBTX, id string) (*domain.Round, error) {
	row := db.QueryRow(ctx, `
		SELECT id, commit_hash, COALESCE(server_seed, ''), COALESCE(client_entropy, ''),
		       COALESCE(crash_point_ppm, 0), status, started_at, settled_at
		FROM rounds WHERE id = $1`, id)
	return scanRound(row)
}

// LastSettled returns the most recently settled round, or nil.
func (r *RoundRepository) LastSettled(ctx context.Context, db DBTX) (*domain.Round, error) {
	row := db.QueryRow(ctx, `
		SELECT id, commit_hash, COALESCE(server_seed, ''), COALESCE(client_entropy, ''),
		       COALESCE(crash_point_ppm, 0), status, started_at, settled_at
		FROM rounds WHERE status = 'settled'
		ORDER BY started_at DESC LIMIT 1`)
	return scanRound(row)
}

// ListRecent returns the latest settled rounds, newest first.
func (r *RoundRepository) ListRecent(ctx context.Context, db DBTX, limit int) ([]domain.Round, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := db.Query(ctx, `
		SELECT id, commit_hash, COALESCE(server_seed, ''), COALESCE(client_entropy, ''),
		       COALESCE(crash_point_ppm, 0), status, started_at, settled_at
		FROM rounds WHERE status = 'settled'
		ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent rounds: %w", err)
	}
	defer rows.Close()

	var out []domain.Round
	for rows.Next() {
		round, err := scanRoundRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *round)
	}
	return out, rows.Err()
}

func scanRound(row pgx.Row) (*domain.Round, error) {
	var rd domain.Round
	var status string
	err := row.Scan(&rd.ID, &rd.CommitHash, &rd.ServerSeed, &rd.ClientEntropy,
		&rd.CrashPointPPM, &status, &rd.StartedAt, &rd.SettledAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan round: %w", err)
	}
	rd.Status = domain.RoundStatus(status)
	return &rd, nil
}

func scanRoundRows(rows pgx.Rows) (*domain.Round, error) {
	var rd domain.Round
	var status string
	err := rows.Scan(&rd.ID, &rd.CommitHash, &rd.ServerSeed, &rd.ClientEntropy,
		&rd.CrashPointPPM, &status, &rd.StartedAt, &rd.SettledAt)
	if err != nil {
		return nil, fmt.Errorf("scan round: %w", err)
	}
	rd.Status = domain.RoundStatus(status)
	return &rd, nil
}
