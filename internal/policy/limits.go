package policy

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/repository"
)

// LimitsCache keeps the current betting limits in memory, backed by the
// single versioned limits row. Reads are hot-path (every bet); writes go
// through the admin surface.
type LimitsCache struct {
	mu      sync.RWMutex
	current domain.Limits
	pool    *pgxpool.Pool
	repo    *repository.LimitsRepository
}

// NewLimitsCache loads limits from the database, seeding from defaults when
// no row exists yet.
func NewLimitsCache(ctx context.Context, pool *pgxpool.Pool, defaults domain.Limits) (*LimitsCache, error) {
	c := &LimitsCache{pool: pool, repo: repository.NewLimitsRepository()}

	stored, err := c.repo.Load(ctx, pool)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		if err := defaults.Validate(); err != nil {
			return nil, err
		}
		if err := c.repo.Save(ctx, pool, &defaults); err != nil {
			return nil, err
		}
		stored = &defaults
	}
	c.current = *stored
	return c, nil
}

// Get returns a copy of the current limits.
func (c *LimitsCache) Get() domain.Limits {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Update validates, persists, and swaps in new limits.
func (c *LimitsCache) Update(ctx context.Context, l domain.Limits) error {
	if err := l.Validate(); err != nil {
		return err
	}
	if err := c.repo.Save(ctx, c.pool, &l); err != nil {
		return err
	}

	c.mu.Lock()
	c.current = l
	c.mu.Unlock()
	return nil
}
