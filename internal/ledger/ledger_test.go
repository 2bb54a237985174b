package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/peerdex/gop2p/internal/domain"
	"github.com/peerdex/gop2p/pkg/sdk/api"
)

func newTestLedger() (*Ledger, *api.MockClient) {
	mock := api.NewMockClient()
	return New(mock), mock
}

func TestMutateBalanceCreatesWalletOnDeposit(t *testing.T) {
	l, _ := newTestLedger()

	l.MutateBalance("USDT", 100, 0)
	w, ok := l.Wallet("USDT")
	require.True(t, ok)
	require.Equal(t, 100.0, w.Balance)
	require.Zero(t, w.LockedBalance)
}

func TestMutateBalanceIgnoresWithdrawalFromUnknownAsset(t *testing.T) {
	l, _ := newTestLedger()
	v := l.Version()

	l.MutateBalance("BTC", -5, 0)
	_, ok := l.Wallet("BTC")
	require.False(t, ok)
	require.Equal(t, v, l.Version())
}

func TestMutateBalanceNonNegativity(t *testing.T) {
	l, _ := newTestLedger()
	l.MutateBalance("USDT", 100, 0)

	// Arbitrary abusive sequence: balances must never go negative.
	seq := []struct{ delta, lock float64 }{
		{-250, 0}, {0, -40}, {-1, 500}, {30, -1000}, {-29.999999995, 0},
	}
	for _, s := range seq {
		l.MutateBalance("USDT", s.delta, s.lock)
		w, _ := l.Wallet("USDT")
		require.GreaterOrEqual(t, w.Balance, 0.0)
		require.GreaterOrEqual(t, w.LockedBalance, 0.0)
	}
}

func TestEscrowLockReleaseScenario(t *testing.T) {
	l, _ := newTestLedger()
	l.MutateBalance("USDT", 100, 0)

	// Lock the full balance for escrow.
	l.MutateBalance("USDT", -100, 100)
	w, _ := l.Wallet("USDT")
	require.Equal(t, 0.0, w.Balance)
	require.Equal(t, 100.0, w.LockedBalance)
	require.Equal(t, 100.0, w.Total())

	// Release the lock; total never exceeded 100.
	l.MutateBalance("USDT", 0, -100)
	w, _ = l.Wallet("USDT")
	require.Equal(t, 0.0, w.Balance)
	require.Equal(t, 0.0, w.LockedBalance)
}

func TestTransferWriteThrough(t *testing.T) {
	l, mock := newTestLedger()
	l.MutateBalance("USDT", 100, 0)

	require.NoError(t, l.Transfer(context.Background(), "USDT", 40, domain.AccountSpendable, domain.AccountFunding))
	require.Equal(t, 1, mock.Calls["Transfer"])

	src, _ := l.Wallet("USDT")
	require.Equal(t, 60.0, src.Balance)
	funding := l.Wallets(domain.AccountFunding)
	require.Len(t, funding, 1)
	require.Equal(t, 40.0, funding[0].Balance)
}

func TestTransferFailureLeavesBothSidesUntouched(t *testing.T) {
	l, mock := newTestLedger()
	l.MutateBalance("USDT", 100, 0)
	mock.ErrorOnNext["Transfer"] = errors.New("service rejected")

	before, _ := l.Wallet("USDT")
	err := l.Transfer(context.Background(), "USDT", 40, domain.AccountSpendable, domain.AccountFunding)
	require.Error(t, err)

	after, _ := l.Wallet("USDT")
	require.Equal(t, before, after)
	require.Empty(t, l.Wallets(domain.AccountFunding))
}

func TestTransferSameAccountIsNoOpFailure(t *testing.T) {
	l, mock := newTestLedger()
	l.MutateBalance("USDT", 100, 0)

	err := l.Transfer(context.Background(), "USDT", 10, domain.AccountSpendable, domain.AccountSpendable)
	require.ErrorIs(t, err, ErrSameAccount)
	require.Zero(t, mock.Calls["Transfer"])
}

func TestTransferValidation(t *testing.T) {
	l, _ := newTestLedger()
	l.MutateBalance("USDT", 10, 0)

	require.ErrorIs(t, l.Transfer(context.Background(), "USDT", 0, domain.AccountSpendable, domain.AccountFunding), ErrInvalidAmount)
	require.ErrorIs(t, l.Transfer(context.Background(), "USDT", -4, domain.AccountSpendable, domain.AccountFunding), ErrInvalidAmount)
	require.ErrorIs(t, l.Transfer(context.Background(), "USDT", 11, domain.AccountSpendable, domain.AccountFunding), ErrInsufficientBalance)
	require.ErrorIs(t, l.Transfer(context.Background(), "BTC", 1, domain.AccountSpendable, domain.AccountFunding), ErrUnknownAsset)
}

func TestRevalueThresholdAndIdempotence(t *testing.T) {
	l, _ := newTestLedger()
	l.MutateBalance("USDT", 100, 0)

	ticks := map[string]domain.PriceTick{"USDT": {Price: 1.0, Change24h: 0.1}}
	l.Revalue(ticks)
	w, _ := l.Wallet("USDT")
	require.Equal(t, 100.0, w.UsdValue)

	v := l.Version()
	// Same ticks again: idempotent, no version bump.
	l.Revalue(ticks)
	require.Equal(t, v, l.Version())

	// Sub-cent move: skipped as float noise.
	l.Revalue(map[string]domain.PriceTick{"USDT": {Price: 1.00005, Change24h: 0.1}})
	w, _ = l.Wallet("USDT")
	require.Equal(t, 100.0, w.UsdValue)
	require.Equal(t, v, l.Version())

	// A real move revalues.
	l.Revalue(map[string]domain.PriceTick{"USDT": {Price: 1.02, Change24h: 0.4}})
	w, _ = l.Wallet("USDT")
	require.Equal(t, 102.0, w.UsdValue)
	require.Equal(t, 0.4, w.Change24h)
	require.Greater(t, l.Version(), v)
}

func TestRevalueUsesLockedHoldings(t *testing.T) {
	l, _ := newTestLedger()
	l.MutateBalance("USDT", 100, 0)
	l.MutateBalance("USDT", -100, 100) // everything escrow-locked

	l.Revalue(map[string]domain.PriceTick{"USDT": {Price: 2.0}})
	w, _ := l.Wallet("USDT")
	require.Equal(t, 200.0, w.UsdValue)
}

func TestSyncWalletsReplacesLocalView(t *testing.T) {
	l, mock := newTestLedger()
	l.MutateBalance("USDT", 999, 0) // optimistic nudge to be reconciled away

	mock.WalletsResponse = map[string][]api.RawWallet{
		"spendable": {{Asset: "USDT", Balance: 120, Locked: 5}},
		"funding":   {{Asset: "BTC", Balance: 1}},
	}
	require.NoError(t, l.SyncWallets(context.Background()))

	w, _ := l.Wallet("USDT")
	require.Equal(t, 120.0, w.Balance)
	require.Equal(t, 5.0, w.LockedBalance)
	funding := l.Wallets(domain.AccountFunding)
	require.Len(t, funding, 1)
	require.Equal(t, "BTC", funding[0].AssetSymbol)
}

func TestSyncWalletsFailureKeepsCache(t *testing.T) {
	l, mock := newTestLedger()
	l.MutateBalance("USDT", 50, 0)
	mock.ErrorOnNext["ListWallets"] = errors.New("offline")

	require.Error(t, l.SyncWallets(context.Background()))
	w, ok := l.Wallet("USDT")
	require.True(t, ok)
	require.Equal(t, 50.0, w.Balance)
}

func TestTransactions(t *testing.T) {
	l, _ := newTestLedger()

	rec := l.AddTransaction("USDT", "trade", 50, "trade t1 settled")
	require.NotEmpty(t, rec.ID)
	require.Len(t, l.Transactions(), 1)

	require.True(t, l.DeleteTransaction(rec.ID))
	require.False(t, l.DeleteTransaction(rec.ID))
	require.Empty(t, l.Transactions())
}
