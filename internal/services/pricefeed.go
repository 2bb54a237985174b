package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/peerdex/gop2p/internal/domain"
	"github.com/peerdex/gop2p/internal/ledger"
	"github.com/peerdex/gop2p/internal/ports"
	"github.com/peerdex/gop2p/pkg/money"
)

var priceLog = logrus.WithField("component", "pricefeed")

// PriceFeed polls the per-asset price snapshot and drives the ledger's USD
// revaluation. Poll failures are swallowed: a stale price view beats a
// crashed one. Overlapping fetches (a slow response racing the next tick)
// are tolerated because Revalue and the tick cache are idempotent merges.
type PriceFeed struct {
	remote   ports.PriceAPI
	ledger   *ledger.Ledger
	interval time.Duration

	mu      sync.RWMutex
	ticks   map[string]domain.PriceTick
	version uint64

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewPriceFeed(remote ports.PriceAPI, l *ledger.Ledger, interval time.Duration) *PriceFeed {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &PriceFeed{
		remote:   remote,
		ledger:   l,
		interval: interval,
		ticks:    make(map[string]domain.PriceTick),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background poll loop with an immediate first fetch.
func (p *PriceFeed) Start() {
	p.wg.Add(1)
	go p.pollLoop()
	priceLog.Infof("price feed started, interval=%v", p.interval)
}

// Stop waits for the loop to drain.
func (p *PriceFeed) Stop() {
	close(p.stopCh)
	p.wg.Wait()
	priceLog.Info("price feed stopped")
}

func (p *PriceFeed) pollLoop() {
	defer p.wg.Done()

	p.PollOnce(context.Background())

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.PollOnce(context.Background())
		}
	}
}

// PollOnce fetches one price snapshot and applies it. Also used for
// on-demand refresh.
func (p *PriceFeed) PollOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	raw, err := p.remote.GetPrices(ctx)
	if err != nil {
		priceLog.WithError(err).Warn("price poll failed, keeping last snapshot")
		return
	}

	ticks := make(map[string]domain.PriceTick, len(raw))
	for asset, rp := range raw {
		ticks[asset] = domain.PriceTick{
			Price:     money.Round(rp.Price.Float64()),
			Change24h: rp.Change24h.Float64(),
		}
	}

	p.mu.Lock()
	changed := len(ticks) != len(p.ticks)
	if !changed {
		for asset, tick := range ticks {
			if p.ticks[asset] != tick {
				changed = true
				break
			}
		}
	}
	if changed {
		p.ticks = ticks
		p.version++
	}
	p.mu.Unlock()

	if changed && p.ledger != nil {
		p.ledger.Revalue(ticks)
	}
}

// Ticks returns a copy of the last snapshot.
func (p *PriceFeed) Ticks() map[string]domain.PriceTick {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]domain.PriceTick, len(p.ticks))
	for k, v := range p.ticks {
		out[k] = v
	}
	return out
}

// Version increments whenever the snapshot actually changes.
func (p *PriceFeed) Version() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}
