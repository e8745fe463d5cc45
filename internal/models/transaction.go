package models

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid reports whether s is BUY or SELL.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// ParseSide normalizes user input ("buy", " Sell ") into a Side.
func ParseSide(raw string) Side {
	return Side(strings.ToUpper(strings.TrimSpace(raw)))
}

const (
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
)

// DateLayout is the calendar-day layout used on the wire.
const DateLayout = "2006-01-02"

// Transaction is an immutable entry of the trade log. Seq records insertion
// order and breaks ties between trades of the same day.
type Transaction struct {
	ID             string              `json:"id"`
	Seq            int64               `json:"seq"`
	AccountID      string              `json:"accountId,omitempty"`
	Ticker         string              `json:"ticker"`
	Side           Side                `json:"side"`
	Quantity       decimal.Decimal     `json:"quantity"`
	Date           time.Time           `json:"date"`
	PricePerShare  decimal.NullDecimal `json:"pricePerShare"`
	PriceCurrency  string              `json:"priceCurrency"`
	IdempotencyKey string              `json:"idempotencyKey,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
}

// IsEUR reports whether the trade was priced in euros. Every other currency
// is treated as USD.
func (t Transaction) IsEUR() bool {
	return strings.EqualFold(t.PriceCurrency, CurrencyEUR)
}

// Before reports whether t replays before o: by day, then by insertion order.
func (t Transaction) Before(o Transaction) bool {
	if !t.Date.Equal(o.Date) {
		return t.Date.Before(o.Date)
	}
	return t.Seq < o.Seq
}

// SortChronologically orders txs in replay order without touching the caller's slice.
func SortChronologically(txs []Transaction) []Transaction {
	out := append([]Transaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
