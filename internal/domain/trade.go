package domain

import "time"

// Trade is one settlement in flight between a maker and a taker. Offer is a
// denormalized snapshot taken when the trade was created.
type Trade struct {
	ID            string
	Offer         Offer
	Status        TradeStatus
	CryptoAmount  float64
	FiatAmount    float64
	CreatedAt     time.Time
	ExpiresAt     time.Time
	CompletedAt   time.Time
	ChatHistory   []ChatMessage
	IsBuyerRole   bool
	DisputeReason string
}

// TimeLeft returns the cosmetic countdown until expiry. Expiry never drives a
// local state transition; only the remote service moves escrowed value.
func (t *Trade) TimeLeft(now time.Time) time.Duration {
	if t.ExpiresAt.IsZero() {
		return 0
	}
	d := t.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderMe           Sender = "me"
	SenderCounterparty Sender = "counterparty"
	SenderSystem       Sender = "system"
)

// ChatMessage is one entry in a trade's chat. System messages are lifecycle
// audit entries, not user content. Ordering is append-only by arrival and is
// never reordered locally.
type ChatMessage struct {
	ID            string
	Sender        Sender
	Text          string
	AttachmentURL string
	Timestamp     time.Time
	IsSystem      bool
}
