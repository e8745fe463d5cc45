package portfolio_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GooferByte/portfolio-engine/internal/models"
	"github.com/GooferByte/portfolio-engine/internal/pricing"
	"github.com/GooferByte/portfolio-engine/internal/pricing/pricingtest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyOracle fails the historical price of one ticker on one day.
type flakyOracle struct {
	*pricingtest.Oracle
	ticker string
	day    time.Time
	err    error
}

func (f flakyOracle) PriceOnDate(ctx context.Context, ticker string, day time.Time) (decimal.Decimal, error) {
	if ticker == f.ticker && day.Equal(f.day) {
		return decimal.Zero, f.err
	}
	return f.Oracle.PriceOnDate(ctx, ticker, day)
}

func TestPerformanceWithoutTransactions(t *testing.T) {
	report, err := newEngine(emptyOracle(), dayN(30)).ComputePerformance(ctx, nil, "spy")
	require.NoError(t, err)
	assert.True(t, report.NoData)
	assert.Equal(t, "no transactions", report.Reason)
	assert.Equal(t, "SPY", report.Benchmark)
	assert.Empty(t, report.Points)
}

func TestPerformanceDoublingInOneYear(t *testing.T) {
	o := emptyOracle().
		WithPrice("AAPL", day0, 100).
		WithCurrent("AAPL", 200).
		WithPrice("SPY", day0, 400).
		WithCurrent("SPY", 440)
	// Friday 2025-01-03: the grid ends on Thursday 2025-01-02.
	now := time.Date(2025, 1, 3, 15, 0, 0, 0, time.UTC)

	report, err := newEngine(o, now).ComputePerformance(ctx, []models.Transaction{
		buy(1, "AAPL", 10, 100, day0),
	}, "SPY")
	require.NoError(t, err)
	require.False(t, report.NoData)

	// 53 weekly dates plus the off-grid end.
	require.Len(t, report.Points, 54)
	assert.Equal(t, day0, report.Points[0].Date)
	end := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, end, report.Points[53].Date)
	require.Len(t, report.Transactions, 1)

	first := report.Points[0]
	assertDecimal(t, "1000", first.PortfolioValueUSD)
	assertDecimal(t, "100", first.GrowthPctUSD)
	assertDecimal(t, "1000", first.BenchmarkValueUSD)

	last := report.Points[53]
	assertDecimal(t, "2000", last.PortfolioValueUSD)
	assertDecimal(t, "1100", last.BenchmarkValueUSD)
	assertDecimal(t, "200", last.GrowthPctEUR)

	sum := report.Summary
	assertDecimal(t, "100", sum.TotalReturnEUR)
	assertDecimal(t, "10", sum.BenchmarkReturnEUR)
	assertDecimal(t, "90", sum.OutperformanceEUR)
	assert.InDelta(t, 100, sum.CAGREUR.InexactFloat64(), 0.5)
	assert.InDelta(t, 10, sum.BenchmarkCAGREUR.InexactFloat64(), 0.1)
	assert.InDelta(t, 1, sum.Years.InexactFloat64(), 0.01)
	assert.Equal(t, end, sum.EndDate)
	assert.Zero(t, sum.SkippedPoints)
}

func TestPerformanceShadowBenchmarkFollowsSells(t *testing.T) {
	o := emptyOracle().
		WithPrice("AAPL", day0, 100).
		WithCurrent("AAPL", 130).
		WithPrice("SPY", day0, 400).
		WithPrice("SPY", dayN(7), 500).
		WithCurrent("SPY", 500)
	// Wednesday 2024-01-10: the grid ends on Tuesday 2024-01-09.
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	report, err := newEngine(o, now).ComputePerformance(ctx, []models.Transaction{
		buy(1, "AAPL", 10, 100, day0),
		sell(2, "AAPL", 5, 120, dayN(7)),
	}, "SPY")
	require.NoError(t, err)
	require.Len(t, report.Points, 2)

	// 2.5 SPY bought for 1000, 1.2 sold for 600.
	p := report.Points[1]
	assertDecimal(t, "650", p.BenchmarkValueUSD)
	assertDecimal(t, "650", p.PortfolioValueUSD)
	assertDecimal(t, "500", p.CostBasisUSD)
	assertDecimal(t, "130", p.GrowthPctUSD)
	assertDecimal(t, "130", p.BenchmarkGrowthPctUSD)
}

func TestPerformanceSkipsFailedDates(t *testing.T) {
	base := emptyOracle().
		WithPrice("AAPL", day0, 100).
		WithCurrent("AAPL", 110)
	o := flakyOracle{Oracle: base, ticker: "AAPL", day: dayN(7), err: errors.New("timeout")}
	// Friday 2024-01-19: grid is 01-02, 01-09, 01-16 and 01-18.
	now := time.Date(2024, 1, 19, 12, 0, 0, 0, time.UTC)

	report, err := newEngine(o, now).ComputePerformance(ctx, []models.Transaction{
		buy(1, "AAPL", 1, 100, day0),
	}, "")
	require.NoError(t, err)
	require.Len(t, report.Points, 3)
	assert.Equal(t, 1, report.Summary.SkippedPoints)
	for _, p := range report.Points {
		assert.NotEqual(t, dayN(7), p.Date)
	}
	assertDecimal(t, "110", report.Points[2].PortfolioValueUSD)
	assertDecimal(t, "0", report.Points[2].BenchmarkValueUSD)
}

func TestPerformanceCarriesLastKnownPrice(t *testing.T) {
	base := emptyOracle().
		WithPrice("AAPL", day0, 100).
		WithCurrent("AAPL", 120)
	o := flakyOracle{Oracle: base, ticker: "AAPL", day: dayN(7), err: pricing.ErrPriceUnavailable}
	now := time.Date(2024, 1, 19, 12, 0, 0, 0, time.UTC)

	report, err := newEngine(o, now).ComputePerformance(ctx, []models.Transaction{
		buy(1, "AAPL", 2, 100, day0),
	}, "")
	require.NoError(t, err)
	require.Len(t, report.Points, 4)
	assert.Zero(t, report.Summary.SkippedPoints)
	assertDecimal(t, "200", report.Points[1].PortfolioValueUSD)
	assertDecimal(t, "240", report.Points[3].PortfolioValueUSD)
}

func TestPerformanceWithoutComputablePoints(t *testing.T) {
	o := emptyOracle().Failing("AAPL", errors.New("upstream down"))
	now := time.Date(2024, 1, 19, 12, 0, 0, 0, time.UTC)

	report, err := newEngine(o, now).ComputePerformance(ctx, []models.Transaction{
		buy(1, "AAPL", 1, 100, day0),
	}, "SPY")
	require.NoError(t, err)
	assert.True(t, report.NoData)
	assert.Equal(t, "no data points could be computed", report.Reason)
	assert.Empty(t, report.Transactions)
}

func TestPerformanceConvertsAtGridDateRates(t *testing.T) {
	o := emptyOracle().
		WithPrice("AAPL", day0, 100).
		WithCurrent("AAPL", 100).
		WithRate(day0, 1.25).
		WithCurrentRate(1.0)
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	report, err := newEngine(o, now).ComputePerformance(ctx, []models.Transaction{
		buy(1, "AAPL", 10, 100, day0),
	}, "")
	require.NoError(t, err)
	require.Len(t, report.Points, 2)

	// EUR cost stays at the purchase-date rate while the value moves with the rate.
	assertDecimal(t, "800", report.Points[0].PortfolioValueEUR)
	assertDecimal(t, "800", report.Points[0].CostBasisEUR)
	assertDecimal(t, "1000", report.Points[1].PortfolioValueEUR)
	assertDecimal(t, "800", report.Points[1].CostBasisEUR)
	assertDecimal(t, "125", report.Points[1].GrowthPctEUR)
	assertDecimal(t, "100", report.Points[1].GrowthPctUSD)
}
