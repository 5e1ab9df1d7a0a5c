package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/repository"
)

// Store exposes the atomic ledger primitives. Every operation is a single
// database transaction that locks the affected account rows, applies
// server-side balance arithmetic, and appends balanced ledger entries.
//
// Idempotency: each operation carries a caller-supplied client_id; a unique
// index on ref->>'client_id' makes retries collapse into DUPLICATE.
type Store struct {
	pool     *pgxpool.Pool
	accounts *repository.AccountRepository
	entries  *repository.EntryRepository
	outbox   *repository.OutboxRepository
}

// NewStore creates a ledger store over the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:     pool,
		accounts: repository.NewAccountRepository(),
		entries:  repository.NewEntryRepository(),
		outbox:   repository.NewOutboxRepository(),
	}
}

// Pool exposes the underlying pool for read-only queries by handlers.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Result is the outcome of an atomic operation.
type Result struct {
	Entries []*domain.LedgerEntry
	Account *domain.Account
}

func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// checkIdempotency returns a DUPLICATE error when the client_id was already
// posted. Called inside the transaction, after locks are held.
func (s *Store) checkIdempotency(ctx context.Context, tx pgx.Tx, clientID string) error {
	existing, err := s.entries.FindByClientID(ctx, tx, clientID)
	if err != nil {
		return err
	}
	if existing != nil {
		return domain.ErrDuplicate(clientID)
	}
	return nil
}

// lockAccounts locks (creating if needed) every named account in a canonical
// order so concurrent operations cannot deadlock.
func (s *Store) lockAccounts(ctx context.Context, tx pgx.Tx, addrs ...string) (map[string]*domain.Account, error) {
	sorted := append([]string(nil), addrs...)
	sort.Strings(sorted)

	out := make(map[string]*domain.Account, len(sorted))
	for _, addr := range sorted {
		if _, done := out[addr]; done {
			continue
		}
		acct, err := s.accounts.EnsureExists(ctx, tx, addr)
		if err != nil {
			return nil, err
		}
		if acct == nil {
			return nil, domain.ErrInternal("account vanished under lock", nil)
		}
		out[addr] = acct
	}
	return out, nil
}

// post applies balanced postings: per-account balance deltas plus one ledger
// row each. Postings must net to zero over amount+locked_delta.
func (s *Store) post(ctx context.Context, tx pgx.Tx, postings []domain.Posting) ([]*domain.LedgerEntry, *domain.Account, error) {
	if !domain.Balanced(postings) {
		return nil, nil, domain.ErrInternal("unbalanced postings", nil)
	}

	var entries []*domain.LedgerEntry
	var primary *domain.Account
	for i, p := range postings {
		acct, err := s.accounts.ApplyDelta(ctx, tx, p.AccountRef, p.Amount, p.LockedDelta)
		if err != nil {
			return nil, nil, fmt.Errorf("apply delta to %s: %w", p.AccountRef, err)
		}
		entry, err := s.entries.Insert(ctx, tx, p)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return nil, nil, domain.ErrDuplicate(p.Ref.ClientID)
			}
			return nil, nil, err
		}
		entries = append(entries, entry)
		if i == 0 {
			primary = acct
		}
	}
	return entries, primary, nil
}
