// Package lifecycle owns the offer and trade collections and every state
// transition on them. All transitions follow the same write-through shape:
// issue the remote request, normalize the response merged against the prior
// local record, replace the local record. On failure the error is surfaced
// with local state untouched. No transition is ever assumed optimistically.
// The ledger's feedback nudges are the one exception, and they are cosmetic
// pending the next wallet sync.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/peerdex/gop2p/internal/domain"
	"github.com/peerdex/gop2p/internal/normalize"
	"github.com/peerdex/gop2p/internal/ports"
	"github.com/peerdex/gop2p/pkg/sdk/api"
)

var log = logrus.WithField("component", "lifecycle")

// defaultPaymentWindow is the cosmetic countdown used when the service omits
// an expiry. It never drives a local transition.
const defaultPaymentWindow = 30 * time.Minute

// BalanceFeedback is the slice of the wallet ledger the manager is allowed
// to touch: the optimistic local nudge applied after a transition the remote
// service has already confirmed.
type BalanceFeedback interface {
	MutateBalance(asset string, delta, lockDelta float64)
}

// RemoteAPI is the remote surface the manager needs.
type RemoteAPI interface {
	ports.OfferAPI
	ports.TradeAPI
}

type Options struct {
	// Administrator enables ResolveDispute. Normal wallet users never carry
	// this role; it exists for the support tooling built on the same client.
	Administrator bool

	// Ledger receives balance feedback after confirmed transitions. Optional.
	Ledger BalanceFeedback
}

// Manager is the trade lifecycle manager. It is the single writer of the
// offer and trade collections; consumers read through copies.
type Manager struct {
	remote RemoteAPI
	opts   Options

	mu      sync.RWMutex
	offers  []domain.Offer
	trades  []domain.Trade
	version uint64
	closed  bool
}

func NewManager(remote RemoteAPI, opts Options) *Manager {
	return &Manager{remote: remote, opts: opts}
}

// Close stops the manager from committing any further state. In-flight
// remote requests are not cancelled; their responses are suppressed when
// they land.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// Version increments on every effective mutation.
func (m *Manager) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Offers returns a copy of the offer list, newest first.
func (m *Manager) Offers() []domain.Offer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Offer(nil), m.offers...)
}

// Trades returns a copy of the trade list, newest first.
func (m *Manager) Trades() []domain.Trade {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Trade, len(m.trades))
	for i := range m.trades {
		out[i] = m.trades[i]
		out[i].ChatHistory = append([]domain.ChatMessage(nil), m.trades[i].ChatHistory...)
	}
	return out
}

// Trade returns a copy of one trade.
func (m *Manager) Trade(id string) (domain.Trade, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.trades {
		if m.trades[i].ID == id {
			t := m.trades[i]
			t.ChatHistory = append([]domain.ChatMessage(nil), t.ChatHistory...)
			return t, true
		}
	}
	return domain.Trade{}, false
}

func (m *Manager) offerByID(id string) (domain.Offer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.offers {
		if o.ID == id {
			return o, true
		}
	}
	return domain.Offer{}, false
}

// --- offers ---

// CreateOffer posts a new offer and prepends the normalized result.
func (m *Manager) CreateOffer(ctx context.Context, req api.OfferRequest) (domain.Offer, error) {
	raw, err := m.remote.CreateOffer(ctx, req)
	if err != nil {
		return domain.Offer{}, errors.Wrap(err, "create offer")
	}
	offer := normalize.Offer(*raw)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.Offer{}, ErrClosed
	}
	m.offers = append([]domain.Offer{offer}, m.offers...)
	m.version++
	return offer, nil
}

// UpdateOffer updates an existing offer and replaces it by id.
func (m *Manager) UpdateOffer(ctx context.Context, id string, req api.OfferRequest) (domain.Offer, error) {
	if _, ok := m.offerByID(id); !ok {
		return domain.Offer{}, ErrOfferNotFound
	}
	raw, err := m.remote.UpdateOffer(ctx, id, req)
	if err != nil {
		return domain.Offer{}, errors.Wrap(err, "update offer")
	}
	offer := normalize.Offer(*raw)
	if offer.ID == "" {
		offer.ID = id
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.Offer{}, ErrClosed
	}
	for i := range m.offers {
		if m.offers[i].ID == id {
			m.offers[i] = offer
			break
		}
	}
	m.version++
	return offer, nil
}

// DeleteOffer deletes an offer remotely, then removes it by id.
func (m *Manager) DeleteOffer(ctx context.Context, id string) error {
	if _, ok := m.offerByID(id); !ok {
		return ErrOfferNotFound
	}
	if err := m.remote.DeleteOffer(ctx, id); err != nil {
		return errors.Wrap(err, "delete offer")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for i := range m.offers {
		if m.offers[i].ID == id {
			m.offers = append(m.offers[:i], m.offers[i+1:]...)
			break
		}
	}
	m.version++
	return nil
}

// --- trades ---

// StartTrade opens a trade against an offer. Amount limits are enforced by
// the remote service, not re-validated here. The new trade snapshots the
// offer terms so later offer edits cannot change an in-flight trade.
func (m *Manager) StartTrade(ctx context.Context, offerID string, amount float64) (domain.Trade, error) {
	offer, ok := m.offerByID(offerID)
	if !ok {
		return domain.Trade{}, ErrOfferNotFound
	}

	raw, err := m.remote.CreateTrade(ctx, offerID, amount)
	if err != nil {
		return domain.Trade{}, errors.Wrap(err, "start trade")
	}

	trade := normalize.Trade(*raw, nil, &offer)
	now := time.Now()
	if trade.CreatedAt.IsZero() {
		trade.CreatedAt = now
	}
	if trade.ExpiresAt.IsZero() {
		trade.ExpiresAt = trade.CreatedAt.Add(defaultPaymentWindow)
	}
	if raw.IsBuyer == nil && raw.Role == "" {
		// Taking a SELL offer means we buy; taking a BUY offer means we sell.
		trade.IsBuyerRole = offer.MakerIntent == domain.IntentSell
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return domain.Trade{}, ErrClosed
	}
	m.trades = append([]domain.Trade{trade}, m.trades...)
	m.version++
	m.mu.Unlock()

	// Selling locks our crypto into escrow: instant feedback, reconciled by
	// the next wallet sync.
	if !trade.IsBuyerRole && m.opts.Ledger != nil {
		m.opts.Ledger.MutateBalance(trade.Offer.Asset, -trade.CryptoAmount, trade.CryptoAmount)
	}

	log.Infof("trade %s started on offer %s (%.8f %s)", trade.ID, offerID, trade.CryptoAmount, trade.Offer.Asset)
	return trade, nil
}

// SendMessage appends a chat message to a trade after the service confirms
// it. There is no local echo before confirmation.
func (m *Manager) SendMessage(ctx context.Context, tradeID, text, attachmentURL string) (domain.ChatMessage, error) {
	if _, ok := m.Trade(tradeID); !ok {
		return domain.ChatMessage{}, ErrTradeNotFound
	}
	raw, err := m.remote.SendMessage(ctx, tradeID, text, attachmentURL)
	if err != nil {
		return domain.ChatMessage{}, errors.Wrap(err, "send message")
	}
	msg := normalize.Message(*raw)
	if msg.Sender == "" || msg.Sender == domain.SenderCounterparty {
		msg.Sender = domain.SenderMe
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.ChatMessage{}, ErrClosed
	}
	for i := range m.trades {
		if m.trades[i].ID == tradeID {
			m.trades[i].ChatHistory = append(m.trades[i].ChatHistory, msg)
			break
		}
	}
	m.version++
	return msg, nil
}

// transition runs one guarded write-through status transition.
func (m *Manager) transition(ctx context.Context, tradeID string, guard func(domain.Trade) error,
	call func(context.Context, string) (*api.RawTrade, error), opName string) (domain.Trade, error) {

	prev, ok := m.Trade(tradeID)
	if !ok {
		return domain.Trade{}, ErrTradeNotFound
	}
	if guard != nil {
		if err := guard(prev); err != nil {
			return domain.Trade{}, err
		}
	}

	raw, err := call(ctx, tradeID)
	if err != nil {
		// Remote rejected or unreachable: local state stays exactly as it
		// was before the attempt.
		return domain.Trade{}, errors.Wrap(err, opName)
	}

	merged := normalize.Trade(*raw, &prev, nil)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.Trade{}, ErrClosed
	}
	for i := range m.trades {
		if m.trades[i].ID == tradeID {
			m.trades[i] = merged
			break
		}
	}
	m.version++
	log.Infof("trade %s: %s -> %s (%s)", tradeID, prev.Status, merged.Status, opName)
	return merged, nil
}

// MarkPaid is the buyer confirming fiat payment.
func (m *Manager) MarkPaid(ctx context.Context, tradeID string) (domain.Trade, error) {
	return m.transition(ctx, tradeID,
		func(t domain.Trade) error {
			if t.Status != domain.StatusWaitingForPayment {
				return ErrInvalidStatus
			}
			if !t.IsBuyerRole {
				return ErrNotBuyer
			}
			return nil
		},
		m.remote.MarkPaid, "mark paid")
}

// ReleaseEscrow is the seller transferring escrowed crypto to the buyer,
// finalizing the trade.
func (m *Manager) ReleaseEscrow(ctx context.Context, tradeID string) (domain.Trade, error) {
	trade, err := m.transition(ctx, tradeID,
		func(t domain.Trade) error {
			if !t.Status.PostPayment() {
				return ErrInvalidStatus
			}
			if t.IsBuyerRole {
				return ErrNotSeller
			}
			return nil
		},
		m.remote.Release, "release escrow")
	if err != nil {
		return trade, err
	}

	// Escrowed crypto has left our wallet.
	if m.opts.Ledger != nil {
		m.opts.Ledger.MutateBalance(trade.Offer.Asset, 0, -trade.CryptoAmount)
	}
	return trade, nil
}

// CancelTrade cancels a trade that is still waiting for payment.
func (m *Manager) CancelTrade(ctx context.Context, tradeID string) (domain.Trade, error) {
	trade, err := m.transition(ctx, tradeID,
		func(t domain.Trade) error {
			if !t.Status.Cancellable() {
				return ErrInvalidStatus
			}
			return nil
		},
		m.remote.Cancel, "cancel trade")
	if err != nil {
		return trade, err
	}

	// A cancelled sell returns the escrow lock to the spendable balance.
	if !trade.IsBuyerRole && m.opts.Ledger != nil {
		m.opts.Ledger.MutateBalance(trade.Offer.Asset, trade.CryptoAmount, -trade.CryptoAmount)
	}
	return trade, nil
}

// SubmitAppeal opens a dispute on a post-payment trade.
func (m *Manager) SubmitAppeal(ctx context.Context, tradeID, reason, description string) (domain.Trade, error) {
	evidence := []string{}
	if description != "" {
		evidence = append(evidence, description)
	}
	return m.transition(ctx, tradeID,
		func(t domain.Trade) error {
			if !t.Status.PostPayment() {
				return ErrInvalidStatus
			}
			return nil
		},
		func(ctx context.Context, id string) (*api.RawTrade, error) {
			return m.remote.OpenDispute(ctx, id, reason, evidence)
		},
		"submit appeal")
}

// ResolveDispute closes a disputed trade, administrator only. The resolution
// names the winning side; funds settle remotely either way, so no balance
// feedback is applied here.
func (m *Manager) ResolveDispute(ctx context.Context, tradeID, resolution string) (domain.Trade, error) {
	if !m.opts.Administrator {
		return domain.Trade{}, ErrNotAdministrator
	}
	return m.transition(ctx, tradeID,
		func(t domain.Trade) error {
			if t.Status != domain.StatusDisputed {
				return ErrInvalidStatus
			}
			return nil
		},
		func(ctx context.Context, id string) (*api.RawTrade, error) {
			return m.remote.ResolveDispute(ctx, id, resolution)
		},
		"resolve dispute")
}

// --- read side ---

// Refresh re-fetches offers and active trades. The merge is idempotent so
// overlapping polls are harmless: trades are merged by id against the prior
// local record (preserving chat history on partial payloads), terminal
// statuses never regress, and locally-known trades missing from the active
// list are kept.
func (m *Manager) Refresh(ctx context.Context) error {
	rawOffers, err := m.remote.ListOffers(ctx)
	if err != nil {
		return errors.Wrap(err, "refresh offers")
	}
	rawTrades, err := m.remote.ListTrades(ctx)
	if err != nil {
		return errors.Wrap(err, "refresh trades")
	}

	offers := make([]domain.Offer, 0, len(rawOffers))
	for _, raw := range rawOffers {
		offers = append(offers, normalize.Offer(raw))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	m.offers = offers

	var fresh []domain.Trade
	for _, raw := range rawTrades {
		id := raw.ID.String()
		if id == "" {
			continue
		}
		idx := -1
		for i := range m.trades {
			if m.trades[i].ID == id {
				idx = i
				break
			}
		}
		if idx >= 0 {
			prev := m.trades[idx]
			merged := normalize.Trade(raw, &prev, nil)
			if prev.Status.Terminal() && merged.Status != prev.Status {
				// Terminal is terminal; a stale or reordered poll response
				// never resurrects a finished trade.
				merged.Status = prev.Status
			}
			m.trades[idx] = merged
		} else {
			fresh = append(fresh, normalize.Trade(raw, nil, nil))
		}
	}
	if len(fresh) > 0 {
		m.trades = append(fresh, m.trades...)
	}
	m.version++
	return nil
}

// RefreshMessages replaces a trade's chat history with the service's list.
func (m *Manager) RefreshMessages(ctx context.Context, tradeID string) error {
	if _, ok := m.Trade(tradeID); !ok {
		return ErrTradeNotFound
	}
	raws, err := m.remote.ListMessages(ctx, tradeID)
	if err != nil {
		return errors.Wrap(err, "refresh messages")
	}
	msgs := make([]domain.ChatMessage, 0, len(raws))
	for _, raw := range raws {
		msgs = append(msgs, normalize.Message(raw))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for i := range m.trades {
		if m.trades[i].ID == tradeID {
			m.trades[i].ChatHistory = msgs
			break
		}
	}
	m.version++
	return nil
}
