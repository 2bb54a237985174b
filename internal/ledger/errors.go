package ledger

import "errors"

var (
	// ErrSameAccount is returned when a transfer names the same sub-account
	// on both sides. Rejected before any remote call.
	ErrSameAccount = errors.New("ledger: transfer between identical accounts")

	// ErrInvalidAmount is returned for zero or negative transfer amounts.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")

	// ErrInsufficientBalance is returned when the source wallet cannot cover
	// the transfer. The remote service is the final arbiter; this is the
	// local fast path.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")

	// ErrUnknownAsset is returned when a transfer names an asset the source
	// account has never seen.
	ErrUnknownAsset = errors.New("ledger: unknown asset")
)
