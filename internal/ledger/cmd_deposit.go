package ledger

import (
	"context"
	"math/big"

	"github.com/jackc/pgx/v5"

	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/repository"
)

// CreditDepositAtomic credits a confirmed on-chain deposit, keyed
// "<tx_hash>:<log_index>". Re-observation of the same event is a no-op: both
// the deposits primary key and the ledger client_id index reject the retry,
// and the caller treats DUPLICATE as success.
func (s *Store) CreditDepositAtomic(ctx context.Context, dep *domain.ConfirmedDeposit) (*Result, error) {
	if err := domain.ValidatePositiveAmount(dep.Amount); err != nil {
		return nil, err
	}

	deposits := repository.NewDepositRepository()
	key := dep.Key()

	var res Result
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.lockAccounts(ctx, tx, dep.Address, domain.HouseAccount); err != nil {
			return err
		}

		inserted, err := deposits.Insert(ctx, tx, dep)
		if err != nil {
			return err
		}
		if !inserted {
			return domain.ErrDuplicate(key)
		}
		if err := s.checkIdempotency(ctx, tx, key); err != nil {
			return err
		}

		ref := domain.EntryRef{ClientID: key, TxHash: dep.TxHash}
		entries, acct, err := s.post(ctx, tx, []domain.Posting{
			{
				AccountRef:  dep.Address,
				Type:        domain.EntryDeposit,
				Amount:      new(big.Int).Set(dep.Amount),
				LockedDelta: big.NewInt(0),
				Ref:         ref,
			},
			{
				AccountRef:  domain.HouseAccount,
				Type:        domain.EntryDeposit,
				Amount:      new(big.Int).Neg(dep.Amount),
				LockedDelta: big.NewInt(0),
				Ref:         domain.EntryRef{ClientID: domain.HouseRefKey(key), TxHash: dep.TxHash},
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

// ReverseDepositAtomic compensates a deposit whose block was orphaned before
// the cursor passed it. The adjustment references both the original credit
// and the reorg observation; the deposits row stays in place so the
// (tx_hash, log_index) key still carries exactly one row.
func (s *Store) ReverseDepositAtomic(ctx context.Context, dep *domain.ConfirmedDeposit, reorgRef string) (*Result, error) {
	key := "reorg:" + dep.Key()

	var res Result
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.lockAccounts(ctx, tx, dep.Address, domain.HouseAccount); err != nil {
			return err
		}
		if err := s.checkIdempotency(ctx, tx, key); err != nil {
			return err
		}

		entries, acct, err := s.post(ctx, tx, []domain.Posting{
			{
				AccountRef:  dep.Address,
				Type:        domain.EntryAdjustment,
				Amount:      new(big.Int).Neg(dep.Amount),
				LockedDelta: big.NewInt(0),
				Ref:         domain.EntryRef{ClientID: key, TxHash: reorgRef},
			},
			{
				AccountRef:  domain.HouseAccount,
				Type:        domain.EntryAdjustment,
				Amount:      new(big.Int).Set(dep.Amount),
				LockedDelta: big.NewInt(0),
				Ref:         domain.EntryRef{ClientID: domain.HouseRefKey(key), TxHash: reorgRef},
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
