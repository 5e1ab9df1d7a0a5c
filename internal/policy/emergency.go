package policy

import (
	"log/slog"
	"sync"
	"time"
)

// Emergency is the latched safety state. Once set it disables bet acceptance
// and freezes withdrawals until an operator clears it; the in-flight round
// always runs to completion.
type Emergency struct {
	mu       sync.RWMutex
	active   bool
	reason   string
	since    time.Time
	logger   *slog.Logger
	onChange func(active bool)
}

// NewEmergency creates an unlatched emergency state.
func NewEmergency(logger *slog.Logger) *Emergency {
	return &Emergency{logger: logger}
}

// OnChange registers a single observer notified on latch transitions.
func (e *Emergency) OnChange(fn func(active bool)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = fn
}

// Trip latches emergency mode. Repeated trips keep the first reason.
func (e *Emergency) Trip(reason string) {
	e.mu.Lock()
	if e.active {
		e.mu.Unlock()
		return
	}
	e.active = true
	e.reason = reason
	e.since = time.Now()
	fn := e.onChange
	e.mu.Unlock()

	e.logger.Error("EMERGENCY MODE latched", "reason", reason)
	if fn != nil {
		fn(true)
	}
}

// Clear releases the latch. Operator action only.
func (e *Emergency) Clear() {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return
	}
	e.active = false
	e.reason = ""
	fn := e.onChange
	e.mu.Unlock()

	e.logger.Warn("emergency mode cleared")
	if fn != nil {
		fn(false)
	}
}

// Active reports whether the latch is set.
func (e *Emergency) Active() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active
}

// Reason returns the first trip reason, empty when unlatched.
func (e *Emergency) Reason() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.reason
}
