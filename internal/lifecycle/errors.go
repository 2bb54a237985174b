package lifecycle

import "errors"

var (
	// ErrOfferNotFound is returned when an operation names an offer that is
	// not in the local list.
	ErrOfferNotFound = errors.New("lifecycle: offer not found")

	// ErrTradeNotFound is returned when an operation names a trade that is
	// not in the local list.
	ErrTradeNotFound = errors.New("lifecycle: trade not found")

	// ErrInvalidStatus is returned when the trade's current status does not
	// permit the requested transition. The remote service re-validates; this
	// is the local guard that keeps obviously-invalid requests (release after
	// cancel, double resolve) from ever leaving the client.
	ErrInvalidStatus = errors.New("lifecycle: transition not allowed from current status")

	// ErrNotBuyer is returned when a non-buyer attempts a buyer-only action.
	ErrNotBuyer = errors.New("lifecycle: only the buyer may confirm payment")

	// ErrNotSeller is returned when a non-seller attempts to release escrow.
	ErrNotSeller = errors.New("lifecycle: only the seller may release escrow")

	// ErrNotAdministrator is returned when dispute resolution is attempted
	// without the administrator role.
	ErrNotAdministrator = errors.New("lifecycle: dispute resolution requires administrator role")

	// ErrClosed is returned once the manager has been closed; late responses
	// from in-flight requests are dropped rather than applied.
	ErrClosed = errors.New("lifecycle: manager closed")
)
