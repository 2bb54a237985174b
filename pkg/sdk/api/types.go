package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// The P2P service has evolved independently of this client and its payloads
// are not stable: numbers arrive as strings, booleans as 0/1, timestamps in
// three formats, and several fields have historical spellings. The types in
// this file decode all of that without ever failing; unusable input degrades
// to the zero value so a malformed payload can never take the client down.

// Numeric handles numbers that may arrive as JSON numbers or quoted strings.
// Unparseable input degrades to 0.
type Numeric float64

func (n *Numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || strings.EqualFold(string(data), "null") {
		*n = 0
		return nil
	}

	if data[0] == '"' && data[len(data)-1] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*n = 0
			return nil
		}
		*n = Numeric(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*n = 0
		return nil
	}
	*n = Numeric(f)
	return nil
}

func (n Numeric) Float64() float64 {
	return float64(n)
}

// FlexString accepts strings, numbers, and booleans, rendering non-strings
// with their JSON text. Ids in particular have shipped as both.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || strings.EqualFold(string(data), "null") {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			*s = ""
			return nil
		}
		*s = FlexString(v)
		return nil
	}
	*s = FlexString(data)
	return nil
}

func (s FlexString) String() string { return string(s) }

// FlexBool accepts true/false, 0/1, and "true"/"false"/"0"/"1".
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch strings.ToLower(strings.Trim(string(data), `"`)) {
	case "true", "1", "yes":
		*b = true
	default:
		*b = false
	}
	return nil
}

func (b FlexBool) Bool() bool { return bool(b) }

// FlexTime accepts unix seconds, unix milliseconds, and RFC3339 strings.
// Anything else decodes to the zero time.
type FlexTime struct {
	time.Time
}

func (t *FlexTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || strings.EqualFold(string(data), "null") {
		t.Time = time.Time{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			t.Time = time.Time{}
			return nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339, s); err == nil {
			t.Time = parsed
			return nil
		}
		// Quoted epoch.
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			t.Time = fromEpoch(f)
			return nil
		}
		t.Time = time.Time{}
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		t.Time = time.Time{}
		return nil
	}
	t.Time = fromEpoch(f)
	return nil
}

// fromEpoch treats values past the year-5000 second range as milliseconds.
func fromEpoch(f float64) time.Time {
	if f <= 0 {
		return time.Time{}
	}
	sec := int64(f)
	if sec > 1e11 {
		return time.UnixMilli(sec)
	}
	return time.Unix(sec, 0)
}

// RawOffer is an offer payload as the service sends it. Alternate field names
// cover spellings seen across service versions; the normalize package
// coalesces them.
type RawOffer struct {
	ID          FlexString `json:"id"`
	Side        string     `json:"side"`
	Intent      string     `json:"intent"` // older spelling of side
	Asset       string     `json:"asset"`
	Coin        string     `json:"coin"` // older spelling of asset
	Fiat        string     `json:"fiat"`
	Currency    string     `json:"fiatCurrency"`
	Country     string     `json:"country"`
	CountryCode string     `json:"countryCode"`
	Price       Numeric    `json:"price"`
	Available   Numeric    `json:"available"`
	Amount      Numeric    `json:"amount"` // older spelling of available
	MinLimit    Numeric    `json:"minLimit"`
	MaxLimit    Numeric    `json:"maxLimit"`
	Methods     []string   `json:"paymentMethods"`
	Details     string     `json:"paymentDetails"`
	Terms       string     `json:"terms"`
	Active      *FlexBool  `json:"active"`
	IsActive    *FlexBool  `json:"isActive"`
}

// RawMessage is a chat message payload.
type RawMessage struct {
	ID         FlexString `json:"id"`
	Sender     string     `json:"sender"`
	From       string     `json:"from"` // older spelling of sender
	Text       string     `json:"text"`
	Body       string     `json:"body"` // older spelling of text
	Attachment string     `json:"attachmentUrl"`
	Timestamp  FlexTime   `json:"timestamp"`
	IsSystem   *FlexBool  `json:"isSystem"`
}

// RawTrade is a trade payload. Updates are frequently partial: a status
// transition response often carries only id and status, so most fields here
// are optional and the normalizer merges against the previous local record.
type RawTrade struct {
	ID            FlexString   `json:"id"`
	OfferID       FlexString   `json:"offerId"`
	Offer         *RawOffer    `json:"offer"`
	Status        string       `json:"status"`
	State         string       `json:"state"` // older spelling of status
	CryptoAmount  Numeric      `json:"cryptoAmount"`
	Amount        Numeric      `json:"amount"` // older spelling of cryptoAmount
	FiatAmount    Numeric      `json:"fiatAmount"`
	CreatedAt     FlexTime     `json:"createdAt"`
	ExpiresAt     FlexTime     `json:"expiresAt"`
	CompletedAt   FlexTime     `json:"completedAt"`
	Messages      []RawMessage `json:"messages"`
	IsBuyer       *FlexBool    `json:"isBuyer"`
	Role          string       `json:"role"` // "buyer" / "seller"
	DisputeReason string       `json:"disputeReason"`
}

// RawWallet is a per-asset balance payload for one sub-account.
type RawWallet struct {
	ID      FlexString `json:"id"`
	Asset   string     `json:"asset"`
	Symbol  string     `json:"symbol"` // older spelling of asset
	Network string     `json:"network"`
	Address string     `json:"address"`
	Balance Numeric    `json:"balance"`
	Locked  Numeric    `json:"lockedBalance"`
	Frozen  Numeric    `json:"frozen"` // older spelling of lockedBalance
}

// RawTransaction is a wallet history entry.
type RawTransaction struct {
	ID     FlexString `json:"id"`
	Asset  string     `json:"asset"`
	Kind   string     `json:"kind"`
	Amount Numeric    `json:"amount"`
	Note   string     `json:"note"`
	Time   FlexTime   `json:"time"`
}

// RawPrice is one asset's entry in the polled price snapshot.
type RawPrice struct {
	Price     Numeric `json:"price"`
	Change24h Numeric `json:"change24h"`
}

// OfferRequest is the write shape for creating or updating an offer.
type OfferRequest struct {
	Side           string   `json:"side"`
	Asset          string   `json:"asset"`
	FiatCurrency   string   `json:"fiatCurrency"`
	CountryCode    string   `json:"countryCode"`
	Price          float64  `json:"price"`
	Available      float64  `json:"available"`
	MinLimit       float64  `json:"minLimit"`
	MaxLimit       float64  `json:"maxLimit"`
	PaymentMethods []string `json:"paymentMethods"`
	PaymentDetails string   `json:"paymentDetails,omitempty"`
	Terms          string   `json:"terms,omitempty"`
}
