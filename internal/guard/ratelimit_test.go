package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterEnforcesLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	assert.True(t, rl.Allow("conn-1"))
	assert.True(t, rl.Allow("conn-1"))
	assert.True(t, rl.Allow("conn-1"))
	assert.False(t, rl.Allow("conn-1"))

	// Other keys are unaffected.
	assert.True(t, rl.Allow("conn-2"))
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)

	assert.True(t, rl.Allow("conn-1"))
	assert.False(t, rl.Allow("conn-1"))

	time.Sleep(20 * time.Millisecond)
	assert.True(t, rl.Allow("conn-1"))
}

func TestRateLimiterForget(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	assert.True(t, rl.Allow("conn-1"))
	rl.Forget("conn-1")
	assert.True(t, rl.Allow("conn-1"))
}
