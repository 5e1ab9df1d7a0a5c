package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/infra"
)

// BetRepository persists bets at settlement. During a round, bets live only
// in the engine's in-memory book.
type BetRepository struct{}

// NewBetRepository returns a pgx-backed bet repository.
func NewBetRepository() *BetRepository {
	return &BetRepository{}
}

// InsertBatch writes all of a round's bets inside the settlement transaction.
func (r *BetRepository) InsertBatch(ctx context.Context, tx pgx.Tx, bets []*domain.Bet) error {
	for _, b := range bets {
		var payout pgtype.Numeric
		if b.Payout != nil {
			payout = infra.BigIntToNumeric(b.Payout)
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO bets (id, round_id, player, stake, funding_type, funding_tx_hash,
			                  auto_cashout_ppm, cashout_ppm, payout, status, client_id, placed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (id) DO NOTHING`,
			b.ID, b.RoundID, b.Player,
			infra.BigIntToNumeric(b.Stake),
			string(b.Funding.Type), nullStr(b.Funding.TxHash),
			nullInt(b.AutoCashoutPPM), nullInt(b.CashoutPPM),
			payout, string(b.Status), b.ClientID, b.PlacedAt,
		)
		if err != nil {
			return fmt.Errorf("insert bet %s: %w", b.ID, err)
		}
	}
	return nil
}

// ListByPlayer returns a player's settled bets, newest first.
func (r *BetRepository) ListByPlayer(ctx context.Context, db DBTX, player string, limit int) ([]domain.Bet, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := db.Query(ctx, `
		SELECT id, round_id, player, stake, funding_type, COALESCE(funding_tx_hash, ''),
		       COALESCE(auto_cashout_ppm, 0), COALESCE(cashout_ppm, 0), payout, status, client_id, placed_at
		FROM bets WHERE player = $1
		ORDER BY placed_at DESC, id DESC
		LIMIT $2`, player, limit)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}
	defer rows.Close()

	return collectBets(rows)
}

// ListByRound returns all bets of a round in placement order.
func (r *BetRepository) ListByRound(ctx context.Context, db DBTX, roundID string) ([]domain.Bet, error) {
	rows, err := db.Query(ctx, `
		SELECT id, round_id, player, stake, funding_type, COALESCE(funding_tx_hash, ''),
		       COALESCE(auto_cashout_ppm, 0), COALESCE(cashout_ppm, 0), payout, status, client_id, placed_at
		FROM bets WHERE round_id = $1
		ORDER BY placed_at ASC`, roundID)
	if err != nil {
		return nil, fmt.Errorf("list round bets: %w", err)
	}
	defer rows.Close()

	return collectBets(rows)
}

// FundingTxUsed reports whether any persisted bet was already funded by the
// given transaction hash. The in-memory book covers the current round; this
// covers all settled ones.
func (r *BetRepository) FundingTxUsed(ctx context.Context, db DBTX, txHash string) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM bets WHERE funding_tx_hash = $1)`, txHash).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check funding tx: %w", err)
	}
	return exists, nil
}

func collectBets(rows pgx.Rows) ([]domain.Bet, error) {
	var out []domain.Bet
	for rows.Next() {
		var b domain.Bet
		var stake, payout pgtype.Numeric
		var fundingType, status string
		err := rows.Scan(&b.ID, &b.RoundID, &b.Player, &stake, &fundingType, &b.Funding.TxHash,
			&b.AutoCashoutPPM, &b.CashoutPPM, &payout, &status, &b.ClientID, &b.PlacedAt)
		if err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		b.Funding.Type = domain.FundingType(fundingType)
		b.Status = domain.BetStatus(status)
		if b.Stake, err = infra.NumericToBigInt(stake); err != nil {
			return nil, err
		}
		if payout.Valid {
			if b.Payout, err = infra.NumericToBigInt(payout); err != nil {
				return nil, err
			}
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}
