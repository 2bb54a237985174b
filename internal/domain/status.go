package domain

// TradeStatus is the canonical trade lifecycle state. Remote services have
// shipped several historical spellings for each of these; the normalize
// package maps them onto this enum.
type TradeStatus string

const (
	StatusWaitingForPayment TradeStatus = "WAITING_FOR_PAYMENT"
	StatusPaidByBuyer       TradeStatus = "PAID_CONFIRMED_BY_BUYER"
	StatusWaitingForRelease TradeStatus = "WAITING_FOR_RELEASE"
	StatusCompleted         TradeStatus = "COMPLETED"
	StatusCancelled         TradeStatus = "CANCELLED"
	StatusDisputed          TradeStatus = "DISPUTED"
)

// Terminal reports whether no further transitions are possible. DISPUTED is
// not terminal: it always resolves to COMPLETED, with funds going to one side.
func (s TradeStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// PostPayment reports whether the buyer has already confirmed fiat payment.
// Disputes may only be opened from a post-payment state.
func (s TradeStatus) PostPayment() bool {
	return s == StatusPaidByBuyer || s == StatusWaitingForRelease
}

// Cancellable reports whether the trade may still be cancelled. Once the
// buyer claims to have paid, cancellation is off the table and the dispute
// path takes over.
func (s TradeStatus) Cancellable() bool {
	return s == StatusWaitingForPayment
}
