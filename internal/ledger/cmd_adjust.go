package ledger

import (
	"context"
	"math/big"

	"github.com/jackc/pgx/v5"

	"github.com/lunarush/crashcore/internal/domain"
)

// AdjustAtomic posts a manual correction: amount (signed) moves between the
// house and the player's available balance as a balanced adjustment pair.
// Operator-only; the reason travels in the entry ref for the audit trail.
func (s *Store) AdjustAtomic(ctx context.Context, account string, amount *big.Int, clientID, reason string) (*Result, error) {
	if amount == nil || amount.Sign() == 0 {
		return nil, domain.ErrInvalidInput("amount must be non-zero")
	}
	if err := domain.ValidateClientID(clientID); err != nil {
		return nil, err
	}

	var res Result
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		accts, err := s.lockAccounts(ctx, tx, account, domain.HouseAccount)
		if err != nil {
			return err
		}
		if err := s.checkIdempotency(ctx, tx, clientID); err != nil {
			return err
		}
		if amount.Sign() < 0 {
			debit := new(big.Int).Neg(amount)
			if accts[account].Available.Cmp(debit) < 0 {
				return domain.ErrInsufficientFunds()
			}
		}

		entries, acct, err := s.post(ctx, tx, []domain.Posting{
			{
				AccountRef:  account,
				Type:        domain.EntryAdjustment,
				Amount:      new(big.Int).Set(amount),
				LockedDelta: big.NewInt(0),
				Ref:         domain.EntryRef{ClientID: clientID, Note: reason},
			},
			{
				AccountRef:  domain.HouseAccount,
				Type:        domain.EntryAdjustment,
				Amount:      new(big.Int).Neg(amount),
				LockedDelta: big.NewInt(0),
				Ref:         domain.EntryRef{ClientID: domain.HouseRefKey(clientID), Note: reason},
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
