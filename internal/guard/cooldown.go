package guard

import (
	"sync"
	"time"
)

// Cooldown enforces the per-player bet cooldown window.
type Cooldown struct {
	mu   sync.Mutex
	last map[string]time.Time
}

// NewCooldown creates an empty cooldown tracker.
func NewCooldown() *Cooldown {
	return &Cooldown{last: make(map[string]time.Time)}
}

// Allow reports whether the key's cooldown has elapsed and, if so, restamps
// it.
func (c *Cooldown) Allow(key string, window time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if t, ok := c.last[key]; ok && now.Sub(t) < window {
		return false
	}
	c.last[key] = now
	return true
}

// Remaining returns how long until the key may act again; zero when allowed.
func (c *Cooldown) Remaining(key string, window time.Duration) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.last[key]
	if !ok {
		return 0
	}
	rem := window - time.Since(t)
	if rem < 0 {
		return 0
	}
	return rem
}
