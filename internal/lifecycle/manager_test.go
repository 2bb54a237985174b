package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/peerdex/gop2p/internal/domain"
	"github.com/peerdex/gop2p/pkg/sdk/api"
)

var ctx = context.Background()

func sellOffer(id string) api.RawOffer {
	active := api.FlexBool(true)
	return api.RawOffer{
		ID:        api.FlexString(id),
		Side:      "SELL",
		Asset:     "USDT",
		Currency:  "EUR",
		Price:     1.02,
		Available: 1000,
		MinLimit:  10,
		MaxLimit:  500,
		IsActive:  &active,
	}
}

func buyOffer(id string) api.RawOffer {
	o := sellOffer(id)
	o.Side = "BUY"
	return o
}

// seeded returns a manager whose offer list already contains raw.
func seeded(t *testing.T, mock *api.MockClient, opts Options, offers ...api.RawOffer) *Manager {
	t.Helper()
	m := NewManager(mock, opts)
	mock.OffersResponse = offers
	require.NoError(t, m.Refresh(ctx))
	return m
}

type feedbackRecorder struct {
	calls []struct{ delta, lock float64 }
}

func (f *feedbackRecorder) MutateBalance(asset string, delta, lockDelta float64) {
	f.calls = append(f.calls, struct{ delta, lock float64 }{delta, lockDelta})
}

func TestStartTradeScenario(t *testing.T) {
	mock := api.NewMockClient()
	m := seeded(t, mock, Options{}, sellOffer("o1"))

	trade, err := m.StartTrade(ctx, "o1", 50)
	require.NoError(t, err)
	require.Equal(t, domain.StatusWaitingForPayment, trade.Status)
	require.Equal(t, 50.0, trade.CryptoAmount)
	require.Equal(t, 51.0, trade.FiatAmount) // 50 * 1.02
	require.True(t, trade.ExpiresAt.After(time.Now()))
	require.True(t, trade.IsBuyerRole) // taking a SELL offer means we buy
	require.Equal(t, "o1", trade.Offer.ID)

	require.Len(t, m.Trades(), 1)
}

func TestStartTradeUnknownOffer(t *testing.T) {
	mock := api.NewMockClient()
	m := NewManager(mock, Options{})

	_, err := m.StartTrade(ctx, "nope", 50)
	require.ErrorIs(t, err, ErrOfferNotFound)
	require.Zero(t, mock.Calls["CreateTrade"])
}

func TestStartTradeRemoteFailureCreatesNothing(t *testing.T) {
	mock := api.NewMockClient()
	m := seeded(t, mock, Options{}, sellOffer("o1"))
	mock.ErrorOnNext["CreateTrade"] = errors.New("limits exceeded")

	_, err := m.StartTrade(ctx, "o1", 9999)
	require.Error(t, err)
	require.Empty(t, m.Trades())
}

func TestCancelThenReleaseMustFail(t *testing.T) {
	mock := api.NewMockClient()
	m := seeded(t, mock, Options{}, sellOffer("o1"))

	trade, err := m.StartTrade(ctx, "o1", 50)
	require.NoError(t, err)

	cancelled, err := m.CancelTrade(ctx, trade.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, cancelled.Status)

	// A cancelled trade is terminal: release must be rejected locally, and
	// the request must never reach the service.
	_, err = m.ReleaseEscrow(ctx, trade.ID)
	require.ErrorIs(t, err, ErrInvalidStatus)
	require.Zero(t, mock.Calls["Release"])

	got, _ := m.Trade(trade.ID)
	require.Equal(t, domain.StatusCancelled, got.Status)
}

func TestDisputeFlow(t *testing.T) {
	mock := api.NewMockClient()
	m := seeded(t, mock, Options{Administrator: true}, sellOffer("o1"))

	trade, err := m.StartTrade(ctx, "o1", 50)
	require.NoError(t, err)

	paid, err := m.MarkPaid(ctx, trade.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPaidByBuyer, paid.Status)

	disputed, err := m.SubmitAppeal(ctx, trade.ID, "no_release", "seller unreachable for 2 days")
	require.NoError(t, err)
	require.Equal(t, domain.StatusDisputed, disputed.Status)
	require.Equal(t, "no_release", disputed.DisputeReason)

	resolved, err := m.ResolveDispute(ctx, trade.ID, "buyer_wins")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, resolved.Status)

	// Already terminal: a second resolution is rejected without a request.
	calls := mock.Calls["ResolveDispute"]
	_, err = m.ResolveDispute(ctx, trade.ID, "seller_wins")
	require.ErrorIs(t, err, ErrInvalidStatus)
	require.Equal(t, calls, mock.Calls["ResolveDispute"])
}

func TestResolveDisputeRequiresAdministrator(t *testing.T) {
	mock := api.NewMockClient()
	m := seeded(t, mock, Options{}, sellOffer("o1"))

	trade, _ := m.StartTrade(ctx, "o1", 50)
	_, _ = m.MarkPaid(ctx, trade.ID)
	_, _ = m.SubmitAppeal(ctx, trade.ID, "fraud", "")

	_, err := m.ResolveDispute(ctx, trade.ID, "buyer_wins")
	require.ErrorIs(t, err, ErrNotAdministrator)
}

func TestAppealRequiresPostPayment(t *testing.T) {
	mock := api.NewMockClient()
	m := seeded(t, mock, Options{}, sellOffer("o1"))

	trade, _ := m.StartTrade(ctx, "o1", 50)
	_, err := m.SubmitAppeal(ctx, trade.ID, "cold_feet", "")
	require.ErrorIs(t, err, ErrInvalidStatus)
	require.Zero(t, mock.Calls["OpenDispute"])
}

func TestMarkPaidGuards(t *testing.T) {
	mock := api.NewMockClient()
	m := seeded(t, mock, Options{}, buyOffer("o2"))

	// Taking a BUY offer makes us the seller: confirming payment is the
	// buyer's action.
	trade, err := m.StartTrade(ctx, "o2", 50)
	require.NoError(t, err)
	require.False(t, trade.IsBuyerRole)

	_, err = m.MarkPaid(ctx, trade.ID)
	require.ErrorIs(t, err, ErrNotBuyer)
	require.Zero(t, mock.Calls["MarkPaid"])
}

func TestRemoteRejectionLeavesStateUntouched(t *testing.T) {
	mock := api.NewMockClient()
	m := seeded(t, mock, Options{}, sellOffer("o1"))

	trade, _ := m.StartTrade(ctx, "o1", 50)
	mock.ErrorOnNext["MarkPaid"] = errors.New("status conflict")

	_, err := m.MarkPaid(ctx, trade.ID)
	require.Error(t, err)

	got, _ := m.Trade(trade.ID)
	require.Equal(t, domain.StatusWaitingForPayment, got.Status)
}

func TestSellerEscrowFeedback(t *testing.T) {
	mock := api.NewMockClient()
	fb := &feedbackRecorder{}
	m := seeded(t, mock, Options{Ledger: fb}, buyOffer("o2"))

	// Selling: starting the trade locks our crypto.
	trade, err := m.StartTrade(ctx, "o2", 50)
	require.NoError(t, err)
	require.Len(t, fb.calls, 1)
	require.Equal(t, -50.0, fb.calls[0].delta)
	require.Equal(t, 50.0, fb.calls[0].lock)

	// Cancelling returns the lock.
	_, err = m.CancelTrade(ctx, trade.ID)
	require.NoError(t, err)
	require.Len(t, fb.calls, 2)
	require.Equal(t, 50.0, fb.calls[1].delta)
	require.Equal(t, -50.0, fb.calls[1].lock)
}

func TestSellerReleaseFeedback(t *testing.T) {
	mock := api.NewMockClient()
	fb := &feedbackRecorder{}
	m := seeded(t, mock, Options{Ledger: fb}, buyOffer("o2"))

	trade, err := m.StartTrade(ctx, "o2", 50)
	require.NoError(t, err)

	// The counterparty marks paid; we observe it through a poll.
	mock.TradesResponse = []api.RawTrade{{ID: api.FlexString(trade.ID), Status: "paid"}}
	require.NoError(t, m.Refresh(ctx))
	got, _ := m.Trade(trade.ID)
	require.Equal(t, domain.StatusPaidByBuyer, got.Status)

	released, err := m.ReleaseEscrow(ctx, trade.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, released.Status)

	last := fb.calls[len(fb.calls)-1]
	require.Equal(t, 0.0, last.delta)
	require.Equal(t, -50.0, last.lock)
}

func TestSendMessageNoLocalEchoBeforeConfirmation(t *testing.T) {
	mock := api.NewMockClient()
	m := seeded(t, mock, Options{}, sellOffer("o1"))
	trade, _ := m.StartTrade(ctx, "o1", 50)

	mock.ErrorOnNext["SendMessage"] = errors.New("offline")
	_, err := m.SendMessage(ctx, trade.ID, "are you there?", "")
	require.Error(t, err)
	got, _ := m.Trade(trade.ID)
	require.Empty(t, got.ChatHistory)

	msg, err := m.SendMessage(ctx, trade.ID, "hello", "")
	require.NoError(t, err)
	require.Equal(t, domain.SenderMe, msg.Sender)
	got, _ = m.Trade(trade.ID)
	require.Len(t, got.ChatHistory, 1)
	require.Equal(t, "hello", got.ChatHistory[0].Text)
}

func TestRefreshMergePreservesChatHistory(t *testing.T) {
	mock := api.NewMockClient()
	m := seeded(t, mock, Options{}, sellOffer("o1"))
	trade, _ := m.StartTrade(ctx, "o1", 50)
	_, err := m.SendMessage(ctx, trade.ID, "hi", "")
	require.NoError(t, err)

	// Poll response with a partial trade payload: chat history and the offer
	// snapshot survive the merge.
	mock.TradesResponse = []api.RawTrade{{ID: api.FlexString(trade.ID), Status: "paid"}}
	require.NoError(t, m.Refresh(ctx))

	got, _ := m.Trade(trade.ID)
	require.Equal(t, domain.StatusPaidByBuyer, got.Status)
	require.Len(t, got.ChatHistory, 1)
	require.Equal(t, "o1", got.Offer.ID)
}

func TestRefreshNeverRegressesTerminalStatus(t *testing.T) {
	mock := api.NewMockClient()
	m := seeded(t, mock, Options{}, sellOffer("o1"))
	trade, _ := m.StartTrade(ctx, "o1", 50)
	_, err := m.CancelTrade(ctx, trade.ID)
	require.NoError(t, err)

	// A stale poll response claiming the trade is still waiting must not
	// resurrect it.
	mock.TradesResponse = []api.RawTrade{{ID: api.FlexString(trade.ID), Status: "waiting_for_payment"}}
	require.NoError(t, m.Refresh(ctx))

	got, _ := m.Trade(trade.ID)
	require.Equal(t, domain.StatusCancelled, got.Status)
}

func TestRefreshIsIdempotent(t *testing.T) {
	mock := api.NewMockClient()
	m := seeded(t, mock, Options{}, sellOffer("o1"))
	mock.TradesResponse = []api.RawTrade{{ID: "t1", Status: "pending", Amount: 25}}

	require.NoError(t, m.Refresh(ctx))
	require.NoError(t, m.Refresh(ctx)) // duplicate in-flight poll landing twice
	require.Len(t, m.Trades(), 1)
}

func TestOfferCRUD(t *testing.T) {
	mock := api.NewMockClient()
	m := NewManager(mock, Options{})

	offer, err := m.CreateOffer(ctx, api.OfferRequest{
		Side: "SELL", Asset: "USDT", FiatCurrency: "EUR",
		Price: 1.02, Available: 1000, MinLimit: 10, MaxLimit: 500,
	})
	require.NoError(t, err)
	require.NotEmpty(t, offer.ID)
	require.Len(t, m.Offers(), 1)

	updated, err := m.UpdateOffer(ctx, offer.ID, api.OfferRequest{
		Side: "SELL", Asset: "USDT", FiatCurrency: "EUR",
		Price: 1.05, Available: 800, MinLimit: 10, MaxLimit: 500,
	})
	require.NoError(t, err)
	require.Equal(t, 1.05, updated.Price)
	require.Equal(t, 1.05, m.Offers()[0].Price)

	require.NoError(t, m.DeleteOffer(ctx, offer.ID))
	require.Empty(t, m.Offers())

	_, err = m.UpdateOffer(ctx, "gone", api.OfferRequest{})
	require.ErrorIs(t, err, ErrOfferNotFound)
	require.ErrorIs(t, m.DeleteOffer(ctx, "gone"), ErrOfferNotFound)
}

func TestOfferRemoteFailureLeavesListUnchanged(t *testing.T) {
	mock := api.NewMockClient()
	m := seeded(t, mock, Options{}, sellOffer("o1"))

	mock.ErrorOnNext["DeleteOffer"] = errors.New("in use")
	require.Error(t, m.DeleteOffer(ctx, "o1"))
	require.Len(t, m.Offers(), 1)
}

func TestCloseSuppressesCommits(t *testing.T) {
	mock := api.NewMockClient()
	m := seeded(t, mock, Options{}, sellOffer("o1"))

	m.Close()
	_, err := m.StartTrade(ctx, "o1", 50)
	require.ErrorIs(t, err, ErrClosed)
	require.Empty(t, m.Trades())
	require.ErrorIs(t, m.Refresh(ctx), ErrClosed)
}

func TestRefreshMessages(t *testing.T) {
	mock := api.NewMockClient()
	m := seeded(t, mock, Options{}, sellOffer("o1"))
	trade, _ := m.StartTrade(ctx, "o1", 50)

	mock.MessagesResponse = []api.RawMessage{
		{ID: "m1", Sender: "system", Text: "escrow locked"},
		{ID: "m2", Sender: "counterparty", Text: "paying now"},
	}
	require.NoError(t, m.RefreshMessages(ctx, trade.ID))

	got, _ := m.Trade(trade.ID)
	require.Len(t, got.ChatHistory, 2)
	require.True(t, got.ChatHistory[0].IsSystem)
}
