package policy

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEmergencyLatchKeepsFirstReason(t *testing.T) {
	e := NewEmergency(discardLogger())
	assert.False(t, e.Active())

	e.Trip("ledger drift")
	e.Trip("negative balance")

	assert.True(t, e.Active())
	assert.Equal(t, "ledger drift", e.Reason())
}

func TestEmergencyClear(t *testing.T) {
	e := NewEmergency(discardLogger())
	e.Trip("ledger drift")
	e.Clear()

	assert.False(t, e.Active())
	assert.Empty(t, e.Reason())
}

func TestEmergencyNotifiesObserver(t *testing.T) {
	e := NewEmergency(discardLogger())

	var seen []bool
	e.OnChange(func(active bool) { seen = append(seen, active) })

	e.Trip("drift")
	e.Trip("drift again") // no transition, no notification
	e.Clear()
	e.Clear()

	assert.Equal(t, []bool{true, false}, seen)
}
