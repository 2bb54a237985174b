package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/peerdex/gop2p/internal/ledger"
	"github.com/peerdex/gop2p/internal/lifecycle"
)

var syncLog = logrus.WithField("component", "syncer")

// Syncer refreshes the offer/trade lists and the wallet balances from the
// remote service on a fixed interval, plus on demand. Read failures are
// swallowed at this boundary: consumers keep the stale cache and the next
// tick retries. Interval fires are not queued against in-flight fetches;
// duplicate requests are harmless because every merge downstream is
// idempotent.
type Syncer struct {
	manager  *lifecycle.Manager
	ledger   *ledger.Ledger
	interval time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewSyncer(m *lifecycle.Manager, l *ledger.Ledger, interval time.Duration) *Syncer {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Syncer{
		manager:  m,
		ledger:   l,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

func (s *Syncer) Start() {
	s.wg.Add(1)
	go s.loop()
	syncLog.Infof("syncer started, interval=%v", s.interval)
}

func (s *Syncer) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	syncLog.Info("syncer stopped")
}

func (s *Syncer) loop() {
	defer s.wg.Done()

	s.SyncOnce(context.Background())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.SyncOnce(context.Background())
		}
	}
}

// SyncOnce runs one full refresh pass. Errors are logged, never raised: a
// stale view is preferred over a crashed view.
func (s *Syncer) SyncOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	if err := s.manager.Refresh(ctx); err != nil {
		syncLog.WithError(err).Warn("offer/trade refresh failed, keeping stale cache")
	}
	if err := s.ledger.SyncWallets(ctx); err != nil {
		syncLog.WithError(err).Warn("wallet sync failed, keeping stale cache")
	}
}
