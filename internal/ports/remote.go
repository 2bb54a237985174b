// Package ports holds the consumer-side interfaces over the remote service
// client. The ledger and the lifecycle manager depend on these, never on the
// concrete api.Client, so tests run against api.MockClient.
package ports

import (
	"context"

	"github.com/peerdex/gop2p/pkg/sdk/api"
)

// OfferAPI is the offer read/write surface.
type OfferAPI interface {
	ListOffers(ctx context.Context) ([]api.RawOffer, error)
	CreateOffer(ctx context.Context, req api.OfferRequest) (*api.RawOffer, error)
	UpdateOffer(ctx context.Context, id string, req api.OfferRequest) (*api.RawOffer, error)
	DeleteOffer(ctx context.Context, id string) error
}

// TradeAPI is the trade lifecycle surface. Every method is a remote request;
// the service is the sole arbiter of valid transition sequencing.
type TradeAPI interface {
	ListTrades(ctx context.Context) ([]api.RawTrade, error)
	CreateTrade(ctx context.Context, offerID string, amount float64) (*api.RawTrade, error)
	ListMessages(ctx context.Context, tradeID string) ([]api.RawMessage, error)
	SendMessage(ctx context.Context, tradeID, text, attachmentURL string) (*api.RawMessage, error)
	MarkPaid(ctx context.Context, tradeID string) (*api.RawTrade, error)
	Release(ctx context.Context, tradeID string) (*api.RawTrade, error)
	Cancel(ctx context.Context, tradeID string) (*api.RawTrade, error)
	OpenDispute(ctx context.Context, tradeID, reason string, evidence []string) (*api.RawTrade, error)
	ResolveDispute(ctx context.Context, tradeID, resolution string) (*api.RawTrade, error)
}

// WalletAPI is the wallet read surface plus the inter-account transfer write.
type WalletAPI interface {
	ListWallets(ctx context.Context, account string) ([]api.RawWallet, error)
	ListTransactions(ctx context.Context) ([]api.RawTransaction, error)
	Transfer(ctx context.Context, asset string, amount float64, from, to string) error
}

// PriceAPI is the polled price snapshot.
type PriceAPI interface {
	GetPrices(ctx context.Context) (map[string]api.RawPrice, error)
}

// RemoteAPI is the full client surface; *api.Client and *api.MockClient both
// satisfy it.
type RemoteAPI interface {
	OfferAPI
	TradeAPI
	WalletAPI
	PriceAPI
}
