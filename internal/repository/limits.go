package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/infra"
)

// LimitsRepository stores the single versioned limits row.
type LimitsRepository struct{}

// NewLimitsRepository returns a pgx-backed limits repository.
func NewLimitsRepository() *LimitsRepository {
	return &LimitsRepository{}
}

// Load returns the current limits, or nil if none were seeded yet.
func (r *LimitsRepository) Load(ctx context.Context, db DBTX) (*domain.Limits, error) {
	row := db.QueryRow(ctx, `
		SELECT min_stake, max_stake, cap_mult_ppm, liability_factor_pct,
		       per_player_cooldown_ms, round_cap, version, updated_at
		FROM limits WHERE id = 1`)

	var l domain.Limits
	var minStake, maxStake pgtype.Numeric
	err := row.Scan(&minStake, &maxStake, &l.CapMultPPM, &l.LiabilityFactorPct,
		&l.PerPlayerCooldown, &l.RoundCap, &l.Version, &l.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load limits: %w", err)
	}
	if l.MinStake, err = infra.NumericToBigInt(minStake); err != nil {
		return nil, err
	}
	if l.MaxStake, err = infra.NumericToBigInt(maxStake); err != nil {
		return nil, err
	}
	return &l, nil
}

// Save upserts the limits row and bumps its version.
func (r *LimitsRepository) Save(ctx context.Context, db DBTX, l *domain.Limits) error {
	_, err := db.Exec(ctx, `
		INSERT INTO limits (id, min_stake, max_stake, cap_mult_ppm, liability_factor_pct,
		                    per_player_cooldown_ms, round_cap, version, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, 1, now())
		ON CONFLICT (id) DO UPDATE SET
			min_stake = $1, max_stake = $2, cap_mult_ppm = $3, liability_factor_pct = $4,
			per_player_cooldown_ms = $5, round_cap = $6,
			version = limits.version + 1, updated_at = now()`,
		infra.BigIntToNumeric(l.MinStake), infra.BigIntToNumeric(l.MaxStake),
		l.CapMultPPM, l.LiabilityFactorPct, l.PerPlayerCooldown, l.RoundCap)
	if err != nil {
		return fmt.Errorf("save limits: %w", err)
	}
	return nil
}
