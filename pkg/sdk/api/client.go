// Package api is the typed client for the P2P trading service. It owns the
// wire shapes and the endpoint surface; higher layers consume it through the
// interfaces in internal/ports so tests can substitute the mock client.
package api

import (
	"context"
	"fmt"

	"github.com/peerdex/gop2p/pkg/httpclient"
	"github.com/peerdex/gop2p/pkg/ratelimit"
)

// Client talks to the remote P2P service. All methods are blocking and honor
// ctx; retries live inside the HTTP layer and every call first clears the
// endpoint's rate-limit window.
type Client struct {
	http   *httpclient.Client
	limits *ratelimit.Manager
}

func NewClient(baseURL string) *Client {
	return &Client{
		http:   httpclient.NewClient(baseURL),
		limits: ratelimit.NewManager(),
	}
}

// --- offers ---

func (c *Client) ListOffers(ctx context.Context) ([]RawOffer, error) {
	if err := c.limits.Wait(ctx, "offers:read"); err != nil {
		return nil, err
	}
	var out []RawOffer
	resp, err := c.http.DoRequest(ctx, "GET", "/p2p/offers", nil, &out)
	if err := httpclient.ParseHTTPError(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateOffer(ctx context.Context, req OfferRequest) (*RawOffer, error) {
	if err := c.limits.Wait(ctx, "offers:write"); err != nil {
		return nil, err
	}
	var out RawOffer
	resp, err := c.http.DoRequest(ctx, "POST", "/p2p/offers", &httpclient.RequestOptions{Data: req}, &out)
	if err := httpclient.ParseHTTPError(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateOffer(ctx context.Context, id string, req OfferRequest) (*RawOffer, error) {
	if err := c.limits.Wait(ctx, "offers:write"); err != nil {
		return nil, err
	}
	var out RawOffer
	resp, err := c.http.DoRequest(ctx, "PUT", "/p2p/offers/"+id, &httpclient.RequestOptions{Data: req}, &out)
	if err := httpclient.ParseHTTPError(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteOffer(ctx context.Context, id string) error {
	if err := c.limits.Wait(ctx, "offers:write"); err != nil {
		return err
	}
	resp, err := c.http.DoRequest(ctx, "DELETE", "/p2p/offers/"+id, nil, nil)
	return httpclient.ParseHTTPError(resp, err)
}

// --- trades ---

func (c *Client) ListTrades(ctx context.Context) ([]RawTrade, error) {
	if err := c.limits.Wait(ctx, "trades:read"); err != nil {
		return nil, err
	}
	var out []RawTrade
	resp, err := c.http.DoRequest(ctx, "GET", "/p2p/trades", &httpclient.RequestOptions{
		Params: map[string]any{"active": "true"},
	}, &out)
	if err := httpclient.ParseHTTPError(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTrade(ctx context.Context, offerID string, amount float64) (*RawTrade, error) {
	if err := c.limits.Wait(ctx, "trades:write"); err != nil {
		return nil, err
	}
	var out RawTrade
	resp, err := c.http.DoRequest(ctx, "POST", "/p2p/trades", &httpclient.RequestOptions{
		Data: map[string]any{"offerId": offerID, "amount": amount},
	}, &out)
	if err := httpclient.ParseHTTPError(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListMessages(ctx context.Context, tradeID string) ([]RawMessage, error) {
	if err := c.limits.Wait(ctx, "messages"); err != nil {
		return nil, err
	}
	var out []RawMessage
	resp, err := c.http.DoRequest(ctx, "GET", fmt.Sprintf("/p2p/trades/%s/messages", tradeID), nil, &out)
	if err := httpclient.ParseHTTPError(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SendMessage(ctx context.Context, tradeID, text, attachmentURL string) (*RawMessage, error) {
	if err := c.limits.Wait(ctx, "messages"); err != nil {
		return nil, err
	}
	var out RawMessage
	resp, err := c.http.DoRequest(ctx, "POST", fmt.Sprintf("/p2p/trades/%s/messages", tradeID), &httpclient.RequestOptions{
		Data: map[string]any{"text": text, "attachmentUrl": attachmentURL},
	}, &out)
	if err := httpclient.ParseHTTPError(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// transition posts one lifecycle action and returns the (often partial)
// updated trade payload.
func (c *Client) transition(ctx context.Context, tradeID, action string, body map[string]any) (*RawTrade, error) {
	if err := c.limits.Wait(ctx, "trades:write"); err != nil {
		return nil, err
	}
	var out RawTrade
	opt := &httpclient.RequestOptions{}
	if body != nil {
		opt.Data = body
	}
	resp, err := c.http.DoRequest(ctx, "POST", fmt.Sprintf("/p2p/trades/%s/%s", tradeID, action), opt, &out)
	if err := httpclient.ParseHTTPError(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MarkPaid(ctx context.Context, tradeID string) (*RawTrade, error) {
	return c.transition(ctx, tradeID, "pay", nil)
}

func (c *Client) Release(ctx context.Context, tradeID string) (*RawTrade, error) {
	return c.transition(ctx, tradeID, "release", nil)
}

func (c *Client) Cancel(ctx context.Context, tradeID string) (*RawTrade, error) {
	return c.transition(ctx, tradeID, "cancel", nil)
}

func (c *Client) OpenDispute(ctx context.Context, tradeID, reason string, evidence []string) (*RawTrade, error) {
	return c.transition(ctx, tradeID, "dispute", map[string]any{
		"reason":   reason,
		"evidence": evidence,
	})
}

func (c *Client) ResolveDispute(ctx context.Context, tradeID, resolution string) (*RawTrade, error) {
	return c.transition(ctx, tradeID, "resolve", map[string]any{"resolution": resolution})
}

// --- wallets ---

func (c *Client) ListWallets(ctx context.Context, account string) ([]RawWallet, error) {
	if err := c.limits.Wait(ctx, "wallets:read"); err != nil {
		return nil, err
	}
	var out []RawWallet
	resp, err := c.http.DoRequest(ctx, "GET", "/wallets", &httpclient.RequestOptions{
		Params: map[string]any{"account": account},
	}, &out)
	if err := httpclient.ParseHTTPError(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListTransactions(ctx context.Context) ([]RawTransaction, error) {
	if err := c.limits.Wait(ctx, "wallets:read"); err != nil {
		return nil, err
	}
	var out []RawTransaction
	resp, err := c.http.DoRequest(ctx, "GET", "/wallets/transactions", nil, &out)
	if err := httpclient.ParseHTTPError(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Transfer(ctx context.Context, asset string, amount float64, from, to string) error {
	if err := c.limits.Wait(ctx, "wallets:write"); err != nil {
		return err
	}
	resp, err := c.http.DoRequest(ctx, "POST", "/wallets/transfer", &httpclient.RequestOptions{
		Data: map[string]any{"asset": asset, "amount": amount, "from": from, "to": to},
	}, nil)
	return httpclient.ParseHTTPError(resp, err)
}

// --- prices ---

func (c *Client) GetPrices(ctx context.Context) (map[string]RawPrice, error) {
	if err := c.limits.Wait(ctx, "prices"); err != nil {
		return nil, err
	}
	var out map[string]RawPrice
	resp, err := c.http.DoRequest(ctx, "GET", "/prices", nil, &out)
	if err := httpclient.ParseHTTPError(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}
