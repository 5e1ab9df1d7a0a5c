package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lunarush/crashcore/internal/domain"
)

// Reconciler periodically verifies the global ledger invariants:
//
//  1. Σ(amount + locked_delta) over all rows is exactly zero.
//  2. For every account, Σ amount = available and Σ locked_delta = locked.
//  3. No account other than house has available < 0 or locked < 0.
//  4. No client_id appears on more than one row.
//
// On any violation it reports the reason to the violation sink, which latches
// emergency mode. Drift is never swallowed.
type Reconciler struct {
	store       *Store
	logger      *slog.Logger
	interval    time.Duration
	onViolation func(reason string)
}

// NewReconciler creates a reconciler. onViolation is invoked once per
// violating check per tick.
func NewReconciler(store *Store, interval time.Duration, onViolation func(reason string), logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:       store,
		logger:      logger,
		interval:    interval,
		onViolation: onViolation,
	}
}

// Start runs the reconciliation loop until ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.RunOnce(ctx); err != nil {
					r.logger.Error("reconciler run failed", "error", err)
				}
			}
		}
	}()
}

// RunOnce performs a full invariant sweep. Returns an error only for
// infrastructure failures; invariant violations go to the sink.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	total, err := r.store.entries.SumAll(ctx, r.store.pool)
	if err != nil {
		return err
	}
	if total.Sign() != 0 {
		r.violate(fmt.Sprintf("double-entry broken: ledger nets to %s wei", total.String()))
	}

	sums, err := r.store.entries.AccountSums(ctx, r.store.pool)
	if err != nil {
		return err
	}
	for addr, pair := range sums {
		acct, err := r.store.accounts.FindByAddress(ctx, r.store.pool, addr)
		if err != nil {
			return err
		}
		if acct == nil {
			r.violate(fmt.Sprintf("ledger rows for unknown account %s", addr))
			continue
		}
		if acct.Available.Cmp(pair[0]) != 0 {
			r.violate(fmt.Sprintf("account %s drift: available=%s ledger=%s",
				addr, acct.Available, pair[0]))
		}
		if acct.Locked.Cmp(pair[1]) != 0 {
			r.violate(fmt.Sprintf("account %s drift: locked=%s ledger=%s",
				addr, acct.Locked, pair[1]))
		}
	}

	negatives, err := r.store.accounts.ListNegative(ctx, r.store.pool)
	if err != nil {
		return err
	}
	for _, addr := range negatives {
		r.violate(fmt.Sprintf("account %s has a negative balance", addr))
	}

	dups, err := r.store.entries.CountDuplicateClientIDs(ctx, r.store.pool)
	if err != nil {
		return err
	}
	if dups > 0 {
		r.violate(fmt.Sprintf("%d duplicated client_ids in ledger", dups))
	}

	return nil
}

func (r *Reconciler) violate(reason string) {
	r.logger.Error("ledger invariant violated", "reason", reason)
	if r.onViolation != nil {
		r.onViolation(reason)
	}
}

// Balance is a read-only snapshot fetch for the HTTP surface.
func (s *Store) Balance(ctx context.Context, address string) (*domain.Account, error) {
	acct, err := s.accounts.FindByAddress(ctx, s.pool, address)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, domain.ErrNotFound("account", address)
	}
	return acct, nil
}
