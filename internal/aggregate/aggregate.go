// Package aggregate composes the wallet ledger, the trade lifecycle manager
// and the price feed into one read-optimized facade. Many independent
// consumers subscribe to this surface, so Snapshot is memoized on the three
// underlying version counters: until one of them changes, the exact same
// pointer is returned and nothing downstream re-derives.
package aggregate

import (
	"sync"

	"github.com/peerdex/gop2p/internal/domain"
	"github.com/peerdex/gop2p/internal/ledger"
	"github.com/peerdex/gop2p/internal/lifecycle"
	"github.com/peerdex/gop2p/pkg/money"
)

// PriceSource is the slice of the price feed the aggregator reads.
type PriceSource interface {
	Ticks() map[string]domain.PriceTick
	Version() uint64
}

// Snapshot is the consumer-facing read surface. All slices are copies;
// consumers never see internal state.
type Snapshot struct {
	Wallets        []domain.Wallet
	FundingWallets []domain.Wallet
	TotalUsdValue  float64
	Offers         []domain.Offer
	Trades         []domain.Trade
	ActiveTrades   int
	Transactions   []domain.TransactionRecord
	Prices         map[string]domain.PriceTick
}

type Aggregator struct {
	ledger *ledger.Ledger
	trades *lifecycle.Manager
	prices PriceSource

	mu       sync.Mutex
	cached   *Snapshot
	ledgerV  uint64
	tradesV  uint64
	pricesV  uint64
	hasCache bool
}

func New(l *ledger.Ledger, m *lifecycle.Manager, p PriceSource) *Aggregator {
	return &Aggregator{ledger: l, trades: m, prices: p}
}

// Snapshot returns the composed view, rebuilding it only when one of the
// underlying components has actually changed.
func (a *Aggregator) Snapshot() *Snapshot {
	lv := a.ledger.Version()
	tv := a.trades.Version()
	var pv uint64
	if a.prices != nil {
		pv = a.prices.Version()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.hasCache && lv == a.ledgerV && tv == a.tradesV && pv == a.pricesV {
		return a.cached
	}

	snap := &Snapshot{
		Wallets:        a.ledger.Wallets(domain.AccountSpendable),
		FundingWallets: a.ledger.Wallets(domain.AccountFunding),
		Offers:         a.trades.Offers(),
		Trades:         a.trades.Trades(),
		Transactions:   a.ledger.Transactions(),
	}
	if a.prices != nil {
		snap.Prices = a.prices.Ticks()
	}

	total := 0.0
	for _, w := range snap.Wallets {
		total = money.Add(total, w.UsdValue)
	}
	for _, w := range snap.FundingWallets {
		total = money.Add(total, w.UsdValue)
	}
	snap.TotalUsdValue = total

	for _, t := range snap.Trades {
		if !t.Status.Terminal() {
			snap.ActiveTrades++
		}
	}

	a.cached = snap
	a.ledgerV, a.tradesV, a.pricesV = lv, tv, pv
	a.hasCache = true
	return snap
}
