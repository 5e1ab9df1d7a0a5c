package ledger

import (
	"context"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/repository"
)

// DebitWithdrawAtomic debits the player's available balance, credits the
// house custody account, and queues the withdrawal for the payout dispatcher.
func (s *Store) DebitWithdrawAtomic(ctx context.Context, account string, amount *big.Int, clientID string) (*domain.Withdrawal, error) {
	if err := domain.ValidatePositiveAmount(amount); err != nil {
		return nil, err
	}
	if err := domain.ValidateClientID(clientID); err != nil {
		return nil, err
	}

	withdrawals := repository.NewWithdrawalRepository()
	w := &domain.Withdrawal{
		ID:        uuid.New(),
		Address:   account,
		Amount:    new(big.Int).Set(amount),
		ClientID:  clientID,
		Status:    domain.WithdrawalQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		accts, err := s.lockAccounts(ctx, tx, account, domain.HouseAccount)
		if err != nil {
			return err
		}
		if err := s.checkIdempotency(ctx, tx, clientID); err != nil {
			return err
		}
		if accts[account].Available.Cmp(amount) < 0 {
			return domain.ErrInsufficientFunds()
		}

		_, _, err = s.post(ctx, tx, []domain.Posting{
			{
				AccountRef:  account,
				Type:        domain.EntryWithdraw,
				Amount:      new(big.Int).Neg(amount),
				LockedDelta: big.NewInt(0),
				Ref:         domain.EntryRef{ClientID: clientID},
			},
			{
				AccountRef:  domain.HouseAccount,
				Type:        domain.EntryWithdraw,
				Amount:      new(big.Int).Set(amount),
				LockedDelta: big.NewInt(0),
				Ref:         domain.EntryRef{ClientID: domain.HouseRefKey(clientID)},
			},
		})
		if err != nil {
			return err
		}
		return withdrawals.Insert(ctx, tx, w)
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// RefundWithdrawalAtomic returns a failed withdrawal's funds via a
// compensating adjustment, keyed "refund:<withdraw_id>", and marks the row
// refunded.
func (s *Store) RefundWithdrawalAtomic(ctx context.Context, w *domain.Withdrawal) (*Result, error) {
	var res *Result
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		res, err = s.RefundWithdrawalTx(ctx, tx, w)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RefundWithdrawalTx posts the compensating refund inside a caller-owned
// transaction, so the dispatcher can mark a withdrawal failed and return the
// funds in one commit. Idempotent on the "refund:<withdraw_id>" key.
func (s *Store) RefundWithdrawalTx(ctx context.Context, tx pgx.Tx, w *domain.Withdrawal) (*Result, error) {
	withdrawals := repository.NewWithdrawalRepository()
	key := "refund:" + w.ID.String()

	if _, err := s.lockAccounts(ctx, tx, w.Address, domain.HouseAccount); err != nil {
		return nil, err
	}
	if err := s.checkIdempotency(ctx, tx, key); err != nil {
		return nil, err
	}

	entries, acct, err := s.post(ctx, tx, []domain.Posting{
		{
			AccountRef:  w.Address,
			Type:        domain.EntryAdjustment,
			Amount:      new(big.Int).Set(w.Amount),
			LockedDelta: big.NewInt(0),
			Ref:         domain.EntryRef{ClientID: key},
		},
		{
			AccountRef:  domain.HouseAccount,
			Type:        domain.EntryAdjustment,
			Amount:      new(big.Int).Neg(w.Amount),
			LockedDelta: big.NewInt(0),
			Ref:         domain.EntryRef{ClientID: domain.HouseRefKey(key)},
		},
	})
	if err != nil {
		return nil, err
	}
	if err := withdrawals.UpdateStatus(ctx, tx, w.ID, domain.WithdrawalRefunded, "", false); err != nil {
		return nil, err
	}
	return &Result{Entries: entries, Account: acct}, nil
}
