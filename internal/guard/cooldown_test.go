package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldownBlocksWithinWindow(t *testing.T) {
	c := NewCooldown()

	assert.True(t, c.Allow("player-a", time.Minute))
	assert.False(t, c.Allow("player-a", time.Minute))
	assert.Greater(t, c.Remaining("player-a", time.Minute), time.Duration(0))
}

func TestCooldownKeysAreIndependent(t *testing.T) {
	c := NewCooldown()

	assert.True(t, c.Allow("player-a", time.Minute))
	assert.True(t, c.Allow("player-b", time.Minute))
}

func TestCooldownExpires(t *testing.T) {
	c := NewCooldown()

	assert.True(t, c.Allow("player-a", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)
	assert.True(t, c.Allow("player-a", 10*time.Millisecond))
	assert.Equal(t, time.Duration(0), c.Remaining("player-b", time.Minute))
}
