// Package ratelimit keeps the client inside the P2P service's published
// request budgets. Limits are grouped per endpoint family; an unknown
// endpoint falls back to the general limiter.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is one rate-limit window.
type Limiter interface {
	// Wait blocks until a request slot is available or ctx is done.
	Wait(ctx context.Context) error
	// Allow reports whether a slot is available, consuming it if so.
	Allow() bool
	// Remaining returns the number of slots left in the current window.
	Remaining() int
}

// SlidingWindow allows at most limit requests per window.
type SlidingWindow struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	requests []time.Time
}

func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{limit: limit, window: window}
}

func (sw *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-sw.window)
	keep := sw.requests[:0]
	for _, r := range sw.requests {
		if r.After(cutoff) {
			keep = append(keep, r)
		}
	}
	sw.requests = keep
}

func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.prune(now)
	if len(sw.requests) >= sw.limit {
		return false
	}
	sw.requests = append(sw.requests, now)
	return true
}

func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for {
		if sw.Allow() {
			return nil
		}

		sw.mu.Lock()
		wait := 100 * time.Millisecond
		if len(sw.requests) > 0 {
			if until := sw.window - time.Since(sw.requests[0]); until > wait {
				wait = until
			}
		}
		sw.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (sw *SlidingWindow) Remaining() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.prune(time.Now())
	if n := sw.limit - len(sw.requests); n > 0 {
		return n
	}
	return 0
}

// Manager routes endpoints to their limiter. Trade transitions move escrowed
// funds and get a generous budget; list polls are the chatty ones and get
// clamped harder.
type Manager struct {
	mu       sync.RWMutex
	limiters map[string]Limiter
	general  Limiter
}

func NewManager() *Manager {
	m := &Manager{
		limiters: map[string]Limiter{
			"offers:read":   NewSlidingWindow(120, 10*time.Second),
			"offers:write":  NewSlidingWindow(30, 10*time.Second),
			"trades:read":   NewSlidingWindow(120, 10*time.Second),
			"trades:write":  NewSlidingWindow(60, 10*time.Second),
			"messages":      NewSlidingWindow(120, 10*time.Second),
			"wallets:read":  NewSlidingWindow(60, 10*time.Second),
			"wallets:write": NewSlidingWindow(30, 10*time.Second),
			"prices":        NewSlidingWindow(60, 10*time.Second),
		},
		general: NewSlidingWindow(300, 10*time.Second),
	}
	return m
}

func (m *Manager) limiter(group string) Limiter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if l, ok := m.limiters[group]; ok {
		return l
	}
	return m.general
}

// Wait blocks until the group's limiter admits the request.
func (m *Manager) Wait(ctx context.Context, group string) error {
	return m.limiter(group).Wait(ctx)
}

// Allow consumes a slot without blocking.
func (m *Manager) Allow(group string) bool {
	return m.limiter(group).Allow()
}

// Remaining reports the group's spare budget.
func (m *Manager) Remaining(group string) int {
	return m.limiter(group).Remaining()
}
