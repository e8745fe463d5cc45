package portfolio_test

import (
	"context"
	"testing"
	"time"

	"github.com/GooferByte/portfolio-engine/internal/logger"
	"github.com/GooferByte/portfolio-engine/internal/models"
	"github.com/GooferByte/portfolio-engine/internal/portfolio"
	"github.com/GooferByte/portfolio-engine/internal/pricing"
	"github.com/GooferByte/portfolio-engine/internal/pricing/pricingtest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// 2024-01-02 is a Tuesday.
var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func dayN(n int) time.Time { return day0.AddDate(0, 0, n) }

func buy(seq int64, ticker string, qty, price float64, day time.Time) models.Transaction {
	return trade(seq, ticker, models.SideBuy, qty, price, day)
}

func sell(seq int64, ticker string, qty, price float64, day time.Time) models.Transaction {
	return trade(seq, ticker, models.SideSell, qty, price, day)
}

func trade(seq int64, ticker string, side models.Side, qty, price float64, day time.Time) models.Transaction {
	return models.Transaction{
		ID:            ticker + "-" + decimal.NewFromInt(seq).String(),
		Seq:           seq,
		Ticker:        ticker,
		Side:          side,
		Quantity:      decimal.NewFromFloat(qty),
		Date:          day,
		PricePerShare: decimal.NewNullDecimal(decimal.NewFromFloat(price)),
		PriceCurrency: models.CurrencyUSD,
	}
}

func newEngine(o pricing.Oracle, now time.Time) *portfolio.Engine {
	return portfolio.NewEngine(o, logger.Discard(),
		portfolio.WithConcurrency(4),
		portfolio.WithClock(func() time.Time { return now }),
	)
}

func emptyOracle() *pricingtest.Oracle { return pricingtest.New() }

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

var ctx = context.Background()
