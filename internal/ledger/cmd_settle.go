package ledger

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/jackc/pgx/v5"

	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/repository"
)

// SettleLossAtomic moves a lost stake from the player's locked balance to the
// house: one bet_lose row per side, keyed "lose:<bet_id>".
func (s *Store) SettleLossAtomic(ctx context.Context, account string, stake *big.Int, ref domain.EntryRef) (*Result, error) {
	if err := domain.ValidatePositiveAmount(stake); err != nil {
		return nil, err
	}

	var res Result
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.lockAccounts(ctx, tx, account, domain.HouseAccount); err != nil {
			return err
		}
		if err := s.checkIdempotency(ctx, tx, ref.ClientID); err != nil {
			return err
		}

		houseRef := ref
		houseRef.ClientID = domain.HouseRefKey(ref.ClientID)

		entries, acct, err := s.post(ctx, tx, []domain.Posting{
			{
				AccountRef:  account,
				Type:        domain.EntryBetLose,
				Amount:      big.NewInt(0),
				LockedDelta: new(big.Int).Neg(stake),
				Ref:         ref,
			},
			{
				AccountRef:  domain.HouseAccount,
				Type:        domain.EntryBetLose,
				Amount:      new(big.Int).Set(stake),
				LockedDelta: big.NewInt(0),
				Ref:         houseRef,
			},
		})
		if err != nil {
			return err
		}
		res = Result{Entries: entries, Account: acct}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// SettleWinAtomic settles a cashed-out bet: the stake leaves the player's
// locked balance to the house, and the payout moves from the house to the
// player's available balance. Both effects commit in one transaction, keyed
// "win:<bet_id>".
func (s *Store) SettleWinAtomic(ctx context.Context, account string, stake, payout *big.Int, ref domain.EntryRef) (*Result, error) {
	if err := domain.ValidatePositiveAmount(stake); err != nil {
		return nil, err
	}
	if payout == nil || payout.Sign() < 0 {
		return nil, domain.ErrInvalidInput("payout must be non-negative")
	}

	var res Result
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.lockAccounts(ctx, tx, account, domain.HouseAccount); err != nil {
			return err
		}
		if err := s.checkIdempotency(ctx, tx, ref.ClientID); err != nil {
			return err
		}

		houseRef := ref
		houseRef.ClientID = domain.HouseRefKey(ref.ClientID)

		// Player: +payout available, -stake locked. House: the mirror.
		houseDelta := new(big.Int).Sub(stake, payout)
		entries, acct, err := s.post(ctx, tx, []domain.Posting{
			{
				AccountRef:  account,
				Type:        domain.EntryBetWin,
				Amount:      new(big.Int).Set(payout),
				LockedDelta: new(big.Int).Neg(stake),
				Ref:         ref,
			},
			{
				AccountRef:  domain.HouseAccount,
				Type:        domain.EntryBetWin,
				Amount:      houseDelta,
				LockedDelta: big.NewInt(0),
				Ref:         houseRef,
			},
		})
		if err != nil {
			return err
		}
		res = Result{Entries: entries, Account: acct}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// PersistSettlement seals the round, writes its bets, and stages the outbox
// event, all in one transaction. The engine retries this until durable before
// opening a new betting phase.
func (s *Store) PersistSettlement(ctx context.Context, round *domain.Round, bets []*domain.Bet) error {
	rounds := repository.NewRoundRepository()
	betRepo := repository.NewBetRepository()

	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := rounds.Seal(ctx, tx, round); err != nil {
			return err
		}
		if err := betRepo.InsertBatch(ctx, tx, bets); err != nil {
			return err
		}

		payload, err := json.Marshal(map[string]interface{}{
			"round_id":       round.ID,
			"crash_ppm":      round.CrashPointPPM,
			"server_seed":    round.ServerSeed,
			"client_entropy": round.ClientEntropy,
			"bets":           len(bets),
			"settled_at":     round.SettledAt,
		})
		if err != nil {
			return err
		}
		return s.outbox.Insert(ctx, tx, repository.OutboxDraft{
			AggregateType: "round",
			AggregateID:   round.ID,
			EventType:     "round_settled",
			Payload:       payload,
		})
	})
}
