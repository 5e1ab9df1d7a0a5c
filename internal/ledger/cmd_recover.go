package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lunarush/crashcore/internal/domain"
)

// RecoverOrphanedStakes refunds stakes left locked by an unclean shutdown: a
// round that opened but never settled leaves its bet_stake rows without a
// settlement counterpart. Each gets a compensating adjustment keyed
// "refund:<bet_id>", so re-running recovery is idempotent. Called once at
// startup, before the engine opens its first round.
func (s *Store) RecoverOrphanedStakes(ctx context.Context, logger *slog.Logger) (int, error) {
	orphans, err := s.entries.ListOrphanedStakes(ctx, s.pool)
	if err != nil {
		return 0, err
	}

	refunded := 0
	for _, entry := range orphans {
		// The stake row carries a negative available delta; the locked
		// amount to release is its positive mirror.
		amount := entry.LockedDelta
		if amount.Sign() <= 0 {
			continue
		}
		ref := domain.EntryRef{
			ClientID: "refund:" + entry.Ref.BetID,
			RoundID:  entry.Ref.RoundID,
			BetID:    entry.Ref.BetID,
		}
		if _, err := s.RefundBetAtomic(ctx, entry.AccountRef, amount, ref); err != nil {
			var app *domain.AppError
			if errors.As(err, &app) && app.Code == "DUPLICATE" {
				continue
			}
			return refunded, err
		}
		refunded++
		logger.Warn("refunded orphaned stake",
			"account", entry.AccountRef, "bet_id", entry.Ref.BetID,
			"round_id", entry.Ref.RoundID, "amount_wei", amount.String())
	}
	return refunded, nil
}
