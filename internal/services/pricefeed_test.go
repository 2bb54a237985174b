package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/peerdex/gop2p/internal/ledger"
	"github.com/peerdex/gop2p/internal/lifecycle"
	"github.com/peerdex/gop2p/pkg/sdk/api"
)

func TestPollOnceAppliesTicksAndRevalues(t *testing.T) {
	mock := api.NewMockClient()
	l := ledger.New(mock)
	l.MutateBalance("USDT", 100, 0)

	feed := NewPriceFeed(mock, l, 0)
	mock.PricesResponse = map[string]api.RawPrice{
		"USDT": {Price: 1.0, Change24h: 0.2},
	}
	feed.PollOnce(context.Background())

	require.Equal(t, uint64(1), feed.Version())
	require.Equal(t, 1.0, feed.Ticks()["USDT"].Price)
	w, _ := l.Wallet("USDT")
	require.Equal(t, 100.0, w.UsdValue)
}

func TestPollOnceFailureKeepsLastSnapshot(t *testing.T) {
	mock := api.NewMockClient()
	feed := NewPriceFeed(mock, nil, 0)

	mock.PricesResponse = map[string]api.RawPrice{"BTC": {Price: 50000}}
	feed.PollOnce(context.Background())
	v := feed.Version()

	mock.ErrorOnNext["GetPrices"] = errors.New("offline")
	feed.PollOnce(context.Background())

	require.Equal(t, v, feed.Version())
	require.Equal(t, 50000.0, feed.Ticks()["BTC"].Price)
}

func TestPollOnceUnchangedSnapshotSkipsVersionBump(t *testing.T) {
	mock := api.NewMockClient()
	feed := NewPriceFeed(mock, nil, 0)
	mock.PricesResponse = map[string]api.RawPrice{"BTC": {Price: 50000}}

	feed.PollOnce(context.Background())
	v := feed.Version()
	feed.PollOnce(context.Background())
	require.Equal(t, v, feed.Version())
}

func TestSyncOnceSwallowsErrors(t *testing.T) {
	mock := api.NewMockClient()
	l := ledger.New(mock)
	l.MutateBalance("USDT", 50, 0)
	// No lifecycle manager refresh failure here; only the wallet leg fails.
	mock.ErrorOnNext["ListWallets"] = errors.New("offline")

	s := NewSyncer(lifecycle.NewManager(mock, lifecycle.Options{}), l, 0)
	s.SyncOnce(context.Background())

	w, ok := l.Wallet("USDT")
	require.True(t, ok)
	require.Equal(t, 50.0, w.Balance)
}
