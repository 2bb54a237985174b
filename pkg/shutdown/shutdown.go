// Package shutdown coordinates graceful teardown. Components register
// callbacks at startup; Shutdown runs them in reverse registration order so
// background pollers stop before the state they feed is closed.
package shutdown

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "shutdown")

type Handler struct {
	Name string
	Fn   func(ctx context.Context) error
}

type Manager struct {
	mu       sync.Mutex
	handlers []Handler
	done     bool
}

func NewManager() *Manager {
	return &Manager{}
}

// OnShutdown registers a teardown callback. Registration order matters:
// callbacks run last-registered first.
func (m *Manager) OnShutdown(name string, fn func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, Handler{Name: name, Fn: fn})
}

// Shutdown runs all registered callbacks sequentially in reverse order,
// honoring ctx's deadline. Idempotent. Callback errors are logged, never
// propagated: teardown always runs to the end.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return
	}
	m.done = true
	handlers := append([]Handler(nil), m.handlers...)
	m.mu.Unlock()

	log.Infof("shutting down, %d handlers", len(handlers))
	for i := len(handlers) - 1; i >= 0; i-- {
		h := handlers[i]
		select {
		case <-ctx.Done():
			log.Warnf("shutdown deadline hit, skipping %q and the rest", h.Name)
			return
		default:
		}
		if err := h.Fn(ctx); err != nil {
			log.WithError(err).Warnf("shutdown handler %q failed", h.Name)
		}
	}
	log.Info("shutdown complete")
}
