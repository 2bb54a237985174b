// Package normalize converts raw service payloads into canonical domain
// entities. Every function here is pure and total: any input shape, including
// the empty payload, yields a usable entity with safe defaults. Nothing in
// this package touches the network or storage.
package normalize

import (
	"strings"

	"github.com/peerdex/gop2p/internal/domain"
	"github.com/peerdex/gop2p/pkg/money"
	"github.com/peerdex/gop2p/pkg/sdk/api"
)

// statusTable maps every remote status spelling the service has ever shipped
// onto the canonical enum. Mis-mapping an unrecognized status is a funds-in-
// escrow correctness risk, so the table is explicit and the default branch is
// deliberate: an unknown status must land in WAITING_FOR_PAYMENT, the only
// state from which no destructive action (release, dispute) is offered.
var statusTable = map[string]domain.TradeStatus{
	"waiting_for_payment": domain.StatusWaitingForPayment,
	"pending":             domain.StatusWaitingForPayment,
	"pending_payment":     domain.StatusWaitingForPayment,
	"created":             domain.StatusWaitingForPayment,
	"new":                 domain.StatusWaitingForPayment,
	"unpaid":              domain.StatusWaitingForPayment,

	"paid":                    domain.StatusPaidByBuyer,
	"buyer_paid":              domain.StatusPaidByBuyer,
	"paid_confirmed_by_buyer": domain.StatusPaidByBuyer,
	"payment_confirmed":       domain.StatusPaidByBuyer,

	"waiting_for_release": domain.StatusWaitingForRelease,
	"wait_release":        domain.StatusWaitingForRelease,
	"releasing":           domain.StatusWaitingForRelease,

	"completed": domain.StatusCompleted,
	"complete":  domain.StatusCompleted,
	"released":  domain.StatusCompleted,
	"done":      domain.StatusCompleted,
	"success":   domain.StatusCompleted,
	"resolved":  domain.StatusCompleted,

	"cancelled": domain.StatusCancelled,
	"canceled":  domain.StatusCancelled,
	"cancel":    domain.StatusCancelled,
	"expired":   domain.StatusCancelled,
	"timeout":   domain.StatusCancelled,

	"disputed":    domain.StatusDisputed,
	"dispute":     domain.StatusDisputed,
	"appeal":      domain.StatusDisputed,
	"appealing":   domain.StatusDisputed,
	"in_dispute":  domain.StatusDisputed,
	"arbitration": domain.StatusDisputed,
}

// Status maps a remote status string onto the canonical enum. Unknown input
// maps to StatusWaitingForPayment.
func Status(s string) domain.TradeStatus {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	if st, ok := statusTable[key]; ok {
		return st
	}
	return domain.StatusWaitingForPayment
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Offer converts a raw offer payload, coalescing historical field spellings.
func Offer(raw api.RawOffer) domain.Offer {
	intent := domain.IntentBuy
	if strings.EqualFold(coalesce(raw.Side, raw.Intent), "sell") {
		intent = domain.IntentSell
	}

	active := true
	if raw.IsActive != nil {
		active = raw.IsActive.Bool()
	} else if raw.Active != nil {
		active = raw.Active.Bool()
	}

	available := raw.Available.Float64()
	if available == 0 {
		available = raw.Amount.Float64()
	}

	return domain.Offer{
		ID:             raw.ID.String(),
		MakerIntent:    intent,
		Asset:          coalesce(raw.Asset, raw.Coin),
		FiatCurrency:   coalesce(raw.Currency, raw.Fiat),
		CountryCode:    coalesce(raw.CountryCode, raw.Country),
		Price:          money.Round(raw.Price.Float64()),
		Available:      money.Round(available),
		MinLimit:       money.Round(raw.MinLimit.Float64()),
		MaxLimit:       money.Round(raw.MaxLimit.Float64()),
		PaymentMethods: append([]string(nil), raw.Methods...),
		PaymentDetails: raw.Details,
		Terms:          raw.Terms,
		IsActive:       active,
	}
}

// Message converts a raw chat message payload.
func Message(raw api.RawMessage) domain.ChatMessage {
	sender := domain.Sender(strings.ToLower(coalesce(raw.Sender, raw.From)))
	switch sender {
	case domain.SenderMe, domain.SenderCounterparty, domain.SenderSystem:
	default:
		sender = domain.SenderCounterparty
	}

	isSystem := sender == domain.SenderSystem
	if raw.IsSystem != nil {
		isSystem = raw.IsSystem.Bool()
	}
	if isSystem {
		sender = domain.SenderSystem
	}

	return domain.ChatMessage{
		ID:            raw.ID.String(),
		Sender:        sender,
		Text:          coalesce(raw.Text, raw.Body),
		AttachmentURL: raw.Attachment,
		Timestamp:     raw.Timestamp.Time,
		IsSystem:      isSystem,
	}
}

// Trade converts a raw trade payload, merging against the previous local
// record. Transition responses are routinely partial (often just id and
// status); any field absent from the payload is carried over from prev so an
// update can never silently erase chat history or the offer snapshot.
// fallbackOffer supplies the offer terms when neither the payload nor prev
// has them, e.g. right after starting a trade from a known offer.
func Trade(raw api.RawTrade, prev *domain.Trade, fallbackOffer *domain.Offer) domain.Trade {
	var t domain.Trade
	if prev != nil {
		t = *prev
		t.ChatHistory = append([]domain.ChatMessage(nil), prev.ChatHistory...)
	}

	if id := raw.ID.String(); id != "" {
		t.ID = id
	}

	switch {
	case raw.Offer != nil:
		t.Offer = Offer(*raw.Offer)
	case prev != nil:
		// keep snapshot
	case fallbackOffer != nil:
		t.Offer = *fallbackOffer
	}

	if s := coalesce(raw.Status, raw.State); s != "" {
		t.Status = Status(s)
	} else if prev == nil {
		t.Status = domain.StatusWaitingForPayment
	}

	if v := raw.CryptoAmount.Float64(); v != 0 {
		t.CryptoAmount = money.Round(v)
	} else if v := raw.Amount.Float64(); v != 0 {
		t.CryptoAmount = money.Round(v)
	}

	if v := raw.FiatAmount.Float64(); v != 0 {
		t.FiatAmount = money.Round(v)
	} else if t.FiatAmount == 0 {
		t.FiatAmount = money.Mul(t.CryptoAmount, t.Offer.Price)
	}

	if !raw.CreatedAt.IsZero() {
		t.CreatedAt = raw.CreatedAt.Time
	}
	if !raw.ExpiresAt.IsZero() {
		t.ExpiresAt = raw.ExpiresAt.Time
	}
	if !raw.CompletedAt.IsZero() {
		t.CompletedAt = raw.CompletedAt.Time
	}

	if raw.Messages != nil {
		msgs := make([]domain.ChatMessage, 0, len(raw.Messages))
		for _, rm := range raw.Messages {
			msgs = append(msgs, Message(rm))
		}
		t.ChatHistory = msgs
	}

	if raw.IsBuyer != nil {
		t.IsBuyerRole = raw.IsBuyer.Bool()
	} else if role := strings.ToLower(raw.Role); role != "" {
		t.IsBuyerRole = role == "buyer"
	}

	if raw.DisputeReason != "" {
		t.DisputeReason = raw.DisputeReason
	}

	return t
}

// Wallet converts a raw wallet payload.
func Wallet(raw api.RawWallet) domain.Wallet {
	asset := coalesce(raw.Asset, raw.Symbol)
	locked := raw.Locked.Float64()
	if locked == 0 {
		locked = raw.Frozen.Float64()
	}
	return domain.Wallet{
		ID:            raw.ID.String(),
		AssetSymbol:   strings.ToUpper(asset),
		Network:       raw.Network,
		Address:       raw.Address,
		Balance:       money.ClampNonNegative(raw.Balance.Float64()),
		LockedBalance: money.ClampNonNegative(locked),
	}
}
