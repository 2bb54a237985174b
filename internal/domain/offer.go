package domain

// Intent is the maker's side of an offer.
type Intent string

const (
	IntentBuy  Intent = "BUY"
	IntentSell Intent = "SELL"
)

// Offer is a standing, maker-posted intent to buy or sell at fixed terms.
// Offers are immutable from the taker's point of view: a trade snapshots the
// offer at creation time so that later edits never change an in-flight
// trade's terms. Available decreases remotely as trades consume it; the
// client never decrements it speculatively.
type Offer struct {
	ID             string
	MakerIntent    Intent
	Asset          string
	FiatCurrency   string
	CountryCode    string
	Price          float64
	Available      float64
	MinLimit       float64
	MaxLimit       float64
	PaymentMethods []string
	PaymentDetails string
	Terms          string
	IsActive       bool
}

// WithinLimits reports whether a trade amount fits the offer's limits. The
// remote service re-validates; this is only used for early caller feedback.
func (o *Offer) WithinLimits(amount float64) bool {
	return amount >= o.MinLimit && amount <= o.MaxLimit
}
