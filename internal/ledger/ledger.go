// Package ledger owns the session-authoritative view of per-asset balances:
// spendable and escrow-locked amounts per sub-account, plus the derived USD
// valuation cache. It is the single writer of balance fields; other
// components mutate balances only through its public API.
//
// Two mutation families with deliberately different semantics:
//
//   - MutateBalance is optimistic and purely local: a clamped balance nudge
//     for instant feedback after a settlement the caller already knows
//     succeeded. It has no failure mode and never talks to the service.
//   - Transfer is write-through: the remote service moves the funds first and
//     the local shift is applied only on explicit success. On failure nothing
//     changes locally.
package ledger

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/peerdex/gop2p/internal/domain"
	"github.com/peerdex/gop2p/internal/normalize"
	"github.com/peerdex/gop2p/internal/ports"
	"github.com/peerdex/gop2p/pkg/money"
)

var log = logrus.WithField("component", "ledger")

// revalueThreshold: USD value changes below one cent are float noise, not a
// revaluation; skipping them keeps downstream consumers from re-deriving on
// every tick.
const revalueThreshold = 0.01

type Ledger struct {
	remote ports.WalletAPI

	mu           sync.RWMutex
	accounts     map[domain.AccountType]map[string]*domain.Wallet
	transactions []domain.TransactionRecord
	version      uint64
}

func New(remote ports.WalletAPI) *Ledger {
	return &Ledger{
		remote: remote,
		accounts: map[domain.AccountType]map[string]*domain.Wallet{
			domain.AccountSpendable: {},
			domain.AccountFunding:   {},
		},
	}
}

// Version increments on every effective mutation; the aggregator keys its
// memoized snapshot on it.
func (l *Ledger) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// MutateBalance adjusts the spendable-account wallet for asset by delta and
// its locked sub-balance by lockDelta, clamping both at zero. An unknown
// asset with delta > 0 creates the wallet (first observed deposit). This is
// the optimistic local feedback path: it never fails and never calls the
// remote service.
func (l *Ledger) MutateBalance(asset string, delta, lockDelta float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	wallets := l.accounts[domain.AccountSpendable]
	w, ok := wallets[asset]
	if !ok {
		if delta <= 0 {
			// Nothing to take from a wallet that was never created.
			return
		}
		w = &domain.Wallet{ID: uuid.NewString(), AssetSymbol: asset}
		wallets[asset] = w
	}

	w.Balance = money.ClampNonNegative(money.Add(w.Balance, delta))
	w.LockedBalance = money.ClampNonNegative(money.Add(w.LockedBalance, lockDelta))
	l.version++
}

// Transfer moves amount of asset between sub-accounts, write-through: the
// remote service must confirm before any local state changes. On any failure
// both sides are left byte-for-byte untouched.
func (l *Ledger) Transfer(ctx context.Context, asset string, amount float64, from, to domain.AccountType) error {
	if from == to {
		return ErrSameAccount
	}
	amount = money.Round(amount)
	if amount <= 0 {
		return ErrInvalidAmount
	}

	l.mu.RLock()
	src, ok := l.accounts[from][asset]
	if !ok {
		l.mu.RUnlock()
		return ErrUnknownAsset
	}
	if src.Balance < amount {
		l.mu.RUnlock()
		return ErrInsufficientBalance
	}
	l.mu.RUnlock()

	if err := l.remote.Transfer(ctx, asset, amount, string(from), string(to)); err != nil {
		log.WithError(err).Warnf("transfer rejected: %.8f %s %s -> %s", amount, asset, from, to)
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Re-read under the write lock; the remote confirmed, so apply the shift
	// clamped rather than failing halfway.
	src, ok = l.accounts[from][asset]
	if !ok {
		return ErrUnknownAsset
	}
	src.Balance = money.ClampNonNegative(money.Sub(src.Balance, amount))

	dst, ok := l.accounts[to][asset]
	if !ok {
		dst = &domain.Wallet{ID: uuid.NewString(), AssetSymbol: asset, Network: src.Network}
		l.accounts[to][asset] = dst
	}
	dst.Balance = money.Add(dst.Balance, amount)
	l.version++
	return nil
}

// Revalue recomputes the cached USD value of every wallet from the supplied
// price ticks. Wallets whose value moved less than one cent are skipped, so
// repeated calls with the same ticks are idempotent and do not bump the
// version.
func (l *Ledger) Revalue(ticks map[string]domain.PriceTick) {
	l.mu.Lock()
	defer l.mu.Unlock()

	changed := false
	for _, wallets := range l.accounts {
		for asset, w := range wallets {
			tick, ok := ticks[asset]
			if !ok {
				continue
			}
			value := money.Mul(w.Total(), tick.Price)
			if math.Abs(value-w.UsdValue) <= revalueThreshold && w.Change24h == tick.Change24h {
				continue
			}
			w.UsdValue = value
			w.Change24h = tick.Change24h
			changed = true
		}
	}
	if changed {
		l.version++
	}
}

// SyncWallets replaces the local balance view with the remote one for both
// sub-accounts. The remote service is the financial truth; local optimistic
// nudges are reconciled away here. Valuation caches are preserved per asset.
func (l *Ledger) SyncWallets(ctx context.Context) error {
	fetched := map[domain.AccountType][]domain.Wallet{}
	for _, account := range []domain.AccountType{domain.AccountSpendable, domain.AccountFunding} {
		raws, err := l.remote.ListWallets(ctx, string(account))
		if err != nil {
			return err
		}
		wallets := make([]domain.Wallet, 0, len(raws))
		for _, raw := range raws {
			wallets = append(wallets, normalize.Wallet(raw))
		}
		fetched[account] = wallets
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for account, wallets := range fetched {
		prev := l.accounts[account]
		next := make(map[string]*domain.Wallet, len(wallets))
		for i := range wallets {
			w := wallets[i]
			if old, ok := prev[w.AssetSymbol]; ok {
				if w.ID == "" {
					w.ID = old.ID
				}
				w.UsdValue = old.UsdValue
				w.Change24h = old.Change24h
			} else if w.ID == "" {
				w.ID = uuid.NewString()
			}
			next[w.AssetSymbol] = &w
		}
		l.accounts[account] = next
	}
	l.version++
	return nil
}

// AddTransaction appends a local bookkeeping record and returns it. These
// records are display history, not financial truth, and are never persisted.
func (l *Ledger) AddTransaction(asset, kind string, amount float64, note string) domain.TransactionRecord {
	rec := domain.TransactionRecord{
		ID:          uuid.NewString(),
		AssetSymbol: asset,
		Kind:        kind,
		Amount:      money.Round(amount),
		Note:        note,
		CreatedAt:   time.Now().Unix(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.transactions = append([]domain.TransactionRecord{rec}, l.transactions...)
	l.version++
	return rec
}

// DeleteTransaction removes a bookkeeping record by id.
func (l *Ledger) DeleteTransaction(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, rec := range l.transactions {
		if rec.ID == id {
			l.transactions = append(l.transactions[:i], l.transactions[i+1:]...)
			l.version++
			return true
		}
	}
	return false
}

// Transactions returns a copy of the bookkeeping history, newest first.
func (l *Ledger) Transactions() []domain.TransactionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.TransactionRecord(nil), l.transactions...)
}

// Wallets returns a copy of the wallets in one sub-account, sorted by asset.
func (l *Ledger) Wallets(account domain.AccountType) []domain.Wallet {
	l.mu.RLock()
	defer l.mu.RUnlock()

	wallets := l.accounts[account]
	out := make([]domain.Wallet, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetSymbol < out[j].AssetSymbol })
	return out
}

// Wallet returns a copy of one spendable-account wallet.
func (l *Ledger) Wallet(asset string) (domain.Wallet, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	w, ok := l.accounts[domain.AccountSpendable][asset]
	if !ok {
		return domain.Wallet{}, false
	}
	return *w, true
}
