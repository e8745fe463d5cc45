package portfolio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/GooferByte/portfolio-engine/internal/dates"
	"github.com/GooferByte/portfolio-engine/internal/models"
	"github.com/GooferByte/portfolio-engine/internal/pricing"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ComputePerformance replays txs over a weekly grid and values, at every grid
// date, the real portfolio and a shadow position that put the same cash flows
// into benchmark. An empty log or a series with no computable point yields a
// report with NoData set, not an error.
func (e *Engine) ComputePerformance(ctx context.Context, txs []models.Transaction, benchmark string) (models.PerformanceReport, error) {
	benchmark = strings.ToUpper(strings.TrimSpace(benchmark))
	report := models.PerformanceReport{
		Benchmark:    benchmark,
		Points:       []models.PerformancePoint{},
		Transactions: []models.TradeMarker{},
	}
	if len(txs) == 0 {
		return noData(report, "no transactions"), nil
	}

	trades, err := e.prepare(ctx, txs)
	if err != nil {
		return models.PerformanceReport{}, err
	}
	for _, t := range trades {
		report.Transactions = append(report.Transactions, models.TradeMarker{
			Date:      t.Date,
			Ticker:    t.Ticker,
			Side:      t.Side,
			Quantity:  t.Quantity,
			AmountUSD: t.amountUSD,
		})
	}

	end := dates.PreviousWeekday(e.now())
	if lastTrade := trades[len(trades)-1].Date; lastTrade.After(end) {
		end = lastTrade
	}
	grid := dates.WeeklyGrid(trades[0].Date, end)

	q, err := e.fetch(ctx, performanceKeys(trades, grid, benchmark))
	if err != nil {
		return models.PerformanceReport{}, err
	}

	s := &series{
		engine:    e,
		quotes:    q,
		benchmark: benchmark,
		last:      grid[len(grid)-1],
		lastKnown: make(map[string]decimal.Decimal),
	}
	b := newBook(e.logger)
	shares := decimal.Zero
	next := 0
	skipped := 0
	for _, day := range grid {
		for next < len(trades) && !trades[next].Date.After(day) {
			b.apply(trades[next])
			shares = s.shadowStep(shares, trades[next])
			next++
		}
		point, err := s.pointAt(b, shares, day)
		if err != nil {
			skipped++
			e.logger.WithError(err).WithField("date", dates.Format(day)).Warn("skipping performance point")
			continue
		}
		report.Points = append(report.Points, point)
	}

	if len(report.Points) == 0 {
		return noData(report, "no data points could be computed"), nil
	}
	report.Summary = summarize(report.Points)
	report.Summary.SkippedPoints = skipped
	return report, nil
}

func noData(report models.PerformanceReport, reason string) models.PerformanceReport {
	report.NoData = true
	report.Reason = reason
	report.Points = []models.PerformancePoint{}
	report.Transactions = []models.TradeMarker{}
	return report
}

// performanceKeys lists every oracle answer the grid replay can need. It
// tracks open quantities only, which need no prices.
func performanceKeys(trades []trade, grid []time.Time, benchmark string) keySet {
	keys := keySet{}
	keys.add(currentRateKey)
	if benchmark != "" {
		keys.add(currentPriceKey(benchmark))
	}
	for _, t := range trades {
		keys.add(currentPriceKey(t.Ticker))
		if benchmark != "" {
			keys.add(priceKey(benchmark, t.Date))
		}
	}

	open := make(map[string]decimal.Decimal)
	last := grid[len(grid)-1]
	next := 0
	for _, day := range grid {
		for next < len(trades) && !trades[next].Date.After(day) {
			t := trades[next]
			if t.Side == models.SideBuy {
				open[t.Ticker] = open[t.Ticker].Add(t.Quantity)
			} else {
				open[t.Ticker] = decimal.Max(decimal.Zero, open[t.Ticker].Sub(t.Quantity))
			}
			next++
		}
		if day.Equal(last) {
			continue
		}
		keys.add(rateKey(day))
		if benchmark != "" {
			keys.add(priceKey(benchmark, day))
		}
		for ticker, qty := range open {
			if qty.IsPositive() {
				keys.add(priceKey(ticker, day))
			}
		}
	}
	return keys
}

// series carries the state of one performance replay.
type series struct {
	engine    *Engine
	quotes    quotes
	benchmark string
	last      time.Time
	lastKnown map[string]decimal.Decimal
}

// key picks the current price for the most recent grid date and the close
// of the day otherwise.
func (s *series) key(ticker string, day time.Time) quoteKey {
	if day.Equal(s.last) {
		return currentPriceKey(ticker)
	}
	return priceKey(ticker, day)
}

// resolve reads a price and substitutes for unknown values: the last value
// seen in this series, then the current price, then zero. Lookup failures
// other than an unknown value are returned.
func (s *series) resolve(ticker string, k quoteKey) (decimal.Decimal, error) {
	p, err := s.quotes.get(k)
	if err == nil {
		s.lastKnown[ticker] = p
		return p, nil
	}
	if !errors.Is(err, pricing.ErrPriceUnavailable) {
		return decimal.Zero, err
	}
	if p, ok := s.lastKnown[ticker]; ok {
		return p, nil
	}
	if p, err := s.quotes.get(currentPriceKey(ticker)); err == nil {
		return p, nil
	}
	s.engine.logger.WithFields(logrus.Fields{
		"ticker": ticker,
		"date":   dates.Format(k.day),
	}).Warn("no price known, valuing at 0")
	return decimal.Zero, nil
}

// shadowStep mirrors a trade into the benchmark: a BUY buys benchmark shares
// for the same USD amount, a SELL sells the USD-equivalent shares.
func (s *series) shadowStep(shares decimal.Decimal, t trade) decimal.Decimal {
	if s.benchmark == "" {
		return shares
	}
	p, err := s.resolve(s.benchmark, priceKey(s.benchmark, t.Date))
	if err != nil || !p.IsPositive() {
		s.engine.logger.WithError(err).WithFields(logrus.Fields{
			"benchmark":   s.benchmark,
			"transaction": t.ID,
		}).Warn("benchmark price unavailable, shadow position unchanged")
		return shares
	}
	delta := t.amountUSD.Div(p)
	if t.Side == models.SideBuy {
		return shares.Add(delta)
	}
	return decimal.Max(decimal.Zero, shares.Sub(delta))
}

func (s *series) pointAt(b *book, shares decimal.Decimal, day time.Time) (models.PerformancePoint, error) {
	rk := rateKey(day)
	if day.Equal(s.last) {
		rk = currentRateKey
	}
	rate := s.engine.rate(s.quotes, rk, logrus.Fields{"date": dates.Format(day)})

	valueUSD := decimal.Zero
	for _, ticker := range b.order {
		qty := b.quantity(ticker)
		if !qty.IsPositive() {
			continue
		}
		p, err := s.resolve(ticker, s.key(ticker, day))
		if err != nil {
			return models.PerformancePoint{}, fmt.Errorf("price of %s: %w", ticker, err)
		}
		valueUSD = valueUSD.Add(p.Mul(qty))
	}

	benchUSD := decimal.Zero
	if shares.IsPositive() {
		p, err := s.resolve(s.benchmark, s.key(s.benchmark, day))
		if err != nil {
			return models.PerformancePoint{}, fmt.Errorf("price of benchmark %s: %w", s.benchmark, err)
		}
		benchUSD = shares.Mul(p)
	}

	costUSD, costEUR := b.costBasis()
	valueEUR := valueUSD.Div(rate)
	benchEUR := benchUSD.Div(rate)
	return models.PerformancePoint{
		Date:                  day,
		PortfolioValueUSD:     valueUSD,
		PortfolioValueEUR:     valueEUR,
		BenchmarkValueUSD:     benchUSD,
		BenchmarkValueEUR:     benchEUR,
		CostBasisUSD:          costUSD,
		CostBasisEUR:          costEUR,
		GrowthPctUSD:          pct(valueUSD, costUSD),
		GrowthPctEUR:          pct(valueEUR, costEUR),
		BenchmarkGrowthPctUSD: pct(benchUSD, costUSD),
		BenchmarkGrowthPctEUR: pct(benchEUR, costEUR),
	}, nil
}

func summarize(points []models.PerformancePoint) models.PerformanceSummary {
	first, last := points[0], points[len(points)-1]
	years := dates.YearsBetween(first.Date, last.Date)

	sum := models.PerformanceSummary{
		StartDate:          first.Date,
		EndDate:            last.Date,
		Years:              decimal.NewFromFloat(years),
		FinalValueUSD:      last.PortfolioValueUSD,
		FinalValueEUR:      last.PortfolioValueEUR,
		FinalCostBasisEUR:  last.CostBasisEUR,
		TotalReturnUSD:     totalReturn(last.GrowthPctUSD, last.CostBasisUSD),
		TotalReturnEUR:     totalReturn(last.GrowthPctEUR, last.CostBasisEUR),
		BenchmarkReturnUSD: totalReturn(last.BenchmarkGrowthPctUSD, last.CostBasisUSD),
		BenchmarkReturnEUR: totalReturn(last.BenchmarkGrowthPctEUR, last.CostBasisEUR),
	}
	sum.OutperformanceUSD = sum.TotalReturnUSD.Sub(sum.BenchmarkReturnUSD)
	sum.OutperformanceEUR = sum.TotalReturnEUR.Sub(sum.BenchmarkReturnEUR)
	sum.CAGREUR = cagr(first.GrowthPctEUR, last.GrowthPctEUR, years, sum.TotalReturnEUR)
	sum.BenchmarkCAGREUR = cagr(first.BenchmarkGrowthPctEUR, last.BenchmarkGrowthPctEUR, years, sum.BenchmarkReturnEUR)
	return sum
}

// totalReturn turns a growth percentage (value/cost) into a return percentage.
func totalReturn(growthPct, costBasis decimal.Decimal) decimal.Decimal {
	if costBasis.IsZero() {
		return decimal.Zero
	}
	return growthPct.Sub(hundred)
}

// cagr annualizes ending/beginning over years, as a percentage. Degenerate
// inputs return fallback.
func cagr(beginning, ending decimal.Decimal, years float64, fallback decimal.Decimal) decimal.Decimal {
	if years <= 0 || !beginning.IsPositive() || !ending.IsPositive() {
		return fallback
	}
	rate := math.Pow(ending.Div(beginning).InexactFloat64(), 1/years) - 1
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return fallback
	}
	return decimal.NewFromFloat(rate * 100)
}
