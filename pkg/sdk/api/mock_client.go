package api

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is an in-memory stand-in for the remote P2P service, used by
// package tests. Responses are settable per endpoint; ErrorOnNext injects a
// one-shot failure so tests can assert that local state survives a rejected
// remote call.
type MockClient struct {
	mu sync.RWMutex

	// Response data
	OffersResponse       []RawOffer
	OfferResponse        *RawOffer
	TradesResponse       []RawTrade
	TradeResponse        *RawTrade
	MessagesResponse     []RawMessage
	MessageResponse      *RawMessage
	WalletsResponse      map[string][]RawWallet // keyed by account
	TransactionsResponse []RawTransaction
	PricesResponse       map[string]RawPrice

	// Call tracking
	Calls map[string]int

	// Error injection
	ErrorOnNext map[string]error

	nextID int
}

func NewMockClient() *MockClient {
	return &MockClient{
		Calls:       make(map[string]int),
		ErrorOnNext: make(map[string]error),
	}
}

func (m *MockClient) trackCall(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[name]++
	if err, ok := m.ErrorOnNext[name]; ok {
		delete(m.ErrorOnNext, name)
		return err
	}
	return nil
}

func (m *MockClient) nextIDLocked(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *MockClient) ListOffers(ctx context.Context) ([]RawOffer, error) {
	if err := m.trackCall("ListOffers"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.OffersResponse, nil
}

func (m *MockClient) CreateOffer(ctx context.Context, req OfferRequest) (*RawOffer, error) {
	if err := m.trackCall("CreateOffer"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OfferResponse != nil {
		return m.OfferResponse, nil
	}
	active := FlexBool(true)
	return &RawOffer{
		ID:        FlexString(m.nextIDLocked("offer")),
		Side:      req.Side,
		Asset:     req.Asset,
		Currency:  req.FiatCurrency,
		Country:   req.CountryCode,
		Price:     Numeric(req.Price),
		Available: Numeric(req.Available),
		MinLimit:  Numeric(req.MinLimit),
		MaxLimit:  Numeric(req.MaxLimit),
		Methods:   req.PaymentMethods,
		Details:   req.PaymentDetails,
		Terms:     req.Terms,
		IsActive:  &active,
	}, nil
}

func (m *MockClient) UpdateOffer(ctx context.Context, id string, req OfferRequest) (*RawOffer, error) {
	if err := m.trackCall("UpdateOffer"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.OfferResponse != nil {
		return m.OfferResponse, nil
	}
	active := FlexBool(true)
	return &RawOffer{
		ID:        FlexString(id),
		Side:      req.Side,
		Asset:     req.Asset,
		Currency:  req.FiatCurrency,
		Price:     Numeric(req.Price),
		Available: Numeric(req.Available),
		MinLimit:  Numeric(req.MinLimit),
		MaxLimit:  Numeric(req.MaxLimit),
		Methods:   req.PaymentMethods,
		IsActive:  &active,
	}, nil
}

func (m *MockClient) DeleteOffer(ctx context.Context, id string) error {
	return m.trackCall("DeleteOffer")
}

func (m *MockClient) ListTrades(ctx context.Context) ([]RawTrade, error) {
	if err := m.trackCall("ListTrades"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.TradesResponse, nil
}

func (m *MockClient) CreateTrade(ctx context.Context, offerID string, amount float64) (*RawTrade, error) {
	if err := m.trackCall("CreateTrade"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TradeResponse != nil {
		return m.TradeResponse, nil
	}
	return &RawTrade{
		ID:      FlexString(m.nextIDLocked("trade")),
		OfferID: FlexString(offerID),
		Status:  "waiting_for_payment",
		Amount:  Numeric(amount),
	}, nil
}

func (m *MockClient) ListMessages(ctx context.Context, tradeID string) ([]RawMessage, error) {
	if err := m.trackCall("ListMessages"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.MessagesResponse, nil
}

func (m *MockClient) SendMessage(ctx context.Context, tradeID, text, attachmentURL string) (*RawMessage, error) {
	if err := m.trackCall("SendMessage"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MessageResponse != nil {
		return m.MessageResponse, nil
	}
	return &RawMessage{
		ID:         FlexString(m.nextIDLocked("msg")),
		Sender:     "me",
		Text:       text,
		Attachment: attachmentURL,
	}, nil
}

func (m *MockClient) respondTransition(name, tradeID, status string) (*RawTrade, error) {
	if err := m.trackCall(name); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.TradeResponse != nil {
		return m.TradeResponse, nil
	}
	// Partial update: id and status only, like the real service.
	return &RawTrade{ID: FlexString(tradeID), Status: status}, nil
}

func (m *MockClient) MarkPaid(ctx context.Context, tradeID string) (*RawTrade, error) {
	return m.respondTransition("MarkPaid", tradeID, "paid")
}

func (m *MockClient) Release(ctx context.Context, tradeID string) (*RawTrade, error) {
	return m.respondTransition("Release", tradeID, "completed")
}

func (m *MockClient) Cancel(ctx context.Context, tradeID string) (*RawTrade, error) {
	return m.respondTransition("Cancel", tradeID, "cancelled")
}

func (m *MockClient) OpenDispute(ctx context.Context, tradeID, reason string, evidence []string) (*RawTrade, error) {
	if err := m.trackCall("OpenDispute"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.TradeResponse != nil {
		return m.TradeResponse, nil
	}
	return &RawTrade{ID: FlexString(tradeID), Status: "disputed", DisputeReason: reason}, nil
}

func (m *MockClient) ResolveDispute(ctx context.Context, tradeID, resolution string) (*RawTrade, error) {
	return m.respondTransition("ResolveDispute", tradeID, "completed")
}

func (m *MockClient) ListWallets(ctx context.Context, account string) ([]RawWallet, error) {
	if err := m.trackCall("ListWallets"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.WalletsResponse == nil {
		return nil, nil
	}
	return m.WalletsResponse[account], nil
}

func (m *MockClient) ListTransactions(ctx context.Context) ([]RawTransaction, error) {
	if err := m.trackCall("ListTransactions"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.TransactionsResponse, nil
}

func (m *MockClient) Transfer(ctx context.Context, asset string, amount float64, from, to string) error {
	return m.trackCall("Transfer")
}

func (m *MockClient) GetPrices(ctx context.Context) (map[string]RawPrice, error) {
	if err := m.trackCall("GetPrices"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PricesResponse, nil
}
