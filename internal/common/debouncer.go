package common

import (
	"sync"
	"time"
)

// Debouncer is a time-based gate: Ready reports whether enough quiet time
// has passed since the last Mark. It keeps no timers of its own; callers
// poll it from their own loop.
type Debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Ready reports whether the gated action should run at now. It does not
// update internal state.
func (d *Debouncer) Ready(now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.interval <= 0 {
		return true
	}
	if d.last.IsZero() {
		return true
	}
	return now.Sub(d.last) >= d.interval
}

// Mark records an action at now; Ready stays false until interval elapses.
func (d *Debouncer) Mark(now time.Time) {
	d.mu.Lock()
	d.last = now
	d.mu.Unlock()
}

// Reset clears the gate so the next Ready reports true.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	d.last = time.Time{}
	d.mu.Unlock()
}
