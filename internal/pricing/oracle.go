package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrPriceUnavailable reports that the source has no value for the request.
// Callers substitute a fallback; any other error is a failed lookup.
var ErrPriceUnavailable = errors.New("price unavailable")

// EURUSDTicker is the pair symbol used for EUR/USD rates (USD per 1 EUR).
const EURUSDTicker = "EURUSD=X"

//go:generate mockgen -source=oracle.go -destination=mocks/oracle.go -package=mocks

// Oracle supplies prices and EUR/USD rates. Implementations own their caching.
type Oracle interface {
	PriceOnDate(ctx context.Context, ticker string, day time.Time) (decimal.Decimal, error)
	CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error)
	EURUSDRateOnDate(ctx context.Context, day time.Time) (decimal.Decimal, error)
	CurrentEURUSDRate(ctx context.Context) (decimal.Decimal, error)
}
