package ledger

import (
	"context"
	"math/big"

	"github.com/jackc/pgx/v5"

	"github.com/lunarush/crashcore/internal/domain"
)

// PlaceBetAtomic reserves a balance-funded stake: available decreases and
// locked increases by the same amount, in one bet_stake row. The row nets to
// zero, so no house counterpart is needed until settlement.
func (s *Store) PlaceBetAtomic(ctx context.Context, account string, amount *big.Int, ref domain.EntryRef) (*Result, error) {
	if err := domain.ValidatePositiveAmount(amount); err != nil {
		return nil, err
	}
	if err := domain.ValidateClientID(ref.ClientID); err != nil {
		return nil, err
	}

	var res Result
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		accts, err := s.lockAccounts(ctx, tx, account)
		if err != nil {
			return err
		}
		if err := s.checkIdempotency(ctx, tx, ref.ClientID); err != nil {
			return err
		}
		if accts[account].Available.Cmp(amount) < 0 {
			return domain.ErrInsufficientFunds()
		}

		entries, acct, err := s.post(ctx, tx, []domain.Posting{{
			AccountRef:  account,
			Type:        domain.EntryBetStake,
			Amount:      new(big.Int).Neg(amount),
			LockedDelta: new(big.Int).Set(amount),
			Ref:         ref,
		}})
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

// RefundBetAtomic reverses a stake reservation with a compensating
// adjustment, keyed "refund:<bet_id>". Used when a settled round cannot be
// persisted for a bet.
func (s *Store) RefundBetAtomic(ctx context.Context, account string, amount *big.Int, ref domain.EntryRef) (*Result, error) {
	if err := domain.ValidatePositiveAmount(amount); err != nil {
		return nil, err
	}

	var res Result
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.lockAccounts(ctx, tx, account); err != nil {
			return err
		}
		if err := s.checkIdempotency(ctx, tx, ref.ClientID); err != nil {
			return err
		}

		entries, acct, err := s.post(ctx, tx, []domain.Posting{{
			AccountRef:  account,
			Type:        domain.EntryAdjustment,
			Amount:      new(big.Int).Set(amount),
			LockedDelta: new(big.Int).Neg(amount),
			Ref:         ref,
		}})
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
