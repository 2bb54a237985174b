package domain

// AccountType is a wallet sub-account. The remote service keeps spendable and
// funding balances separate; transfers move value between them.
type AccountType string

const (
	AccountSpendable AccountType = "spendable"
	AccountFunding   AccountType = "funding"
)

// Wallet is the per-asset balance view for one sub-account.
//
// Balance and LockedBalance are the session-authoritative holdings; UsdValue
// is a derived cache recomputed from (Balance+LockedBalance) * price on every
// price tick, never a source of truth. Zero-balance wallets are kept around
// for history.
type Wallet struct {
	ID            string
	AssetSymbol   string
	Network       string
	Address       string
	Balance       float64
	LockedBalance float64
	UsdValue      float64
	Change24h     float64
}

// Total returns spendable plus escrow-locked holdings.
func (w *Wallet) Total() float64 {
	return w.Balance + w.LockedBalance
}

// PriceTick is one asset's entry in a polled price snapshot.
type PriceTick struct {
	Price     float64
	Change24h float64
}

// TransactionRecord is a local bookkeeping entry shown in the wallet history.
// It is not financial truth and is never persisted; the remote service owns
// the real transaction log.
type TransactionRecord struct {
	ID          string
	AssetSymbol string
	Kind        string // deposit, withdraw, trade, transfer
	Amount      float64
	Note        string
	CreatedAt   int64
}
