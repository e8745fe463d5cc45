// Package pricingtest provides a deterministic in-memory pricing.Oracle for tests.
package pricingtest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GooferByte/portfolio-engine/internal/pricing"
	"github.com/shopspring/decimal"
)

type point struct {
	day   time.Time
	value decimal.Decimal
}

// Oracle answers from canned series. A historical lookup returns the latest
// value on or before the requested day, or pricing.ErrPriceUnavailable.
type Oracle struct {
	mu          sync.RWMutex
	history     map[string][]point
	current     map[string]decimal.Decimal
	failures    map[string]error
	rates       []point
	currentRate decimal.NullDecimal
	calls       atomic.Int64
}

func New() *Oracle {
	return &Oracle{
		history:  make(map[string][]point),
		current:  make(map[string]decimal.Decimal),
		failures: make(map[string]error),
	}
}

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// WithPrice records the close of ticker on day.
func (o *Oracle) WithPrice(ticker string, day time.Time, price float64) *Oracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	key := strings.ToUpper(ticker)
	o.history[key] = insert(o.history[key], point{day: truncate(day), value: d(price)})
	return o
}

// WithCurrent sets the current price of ticker.
func (o *Oracle) WithCurrent(ticker string, price float64) *Oracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.current[strings.ToUpper(ticker)] = d(price)
	return o
}

// WithRate records the EUR/USD rate on day.
func (o *Oracle) WithRate(day time.Time, rate float64) *Oracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rates = insert(o.rates, point{day: truncate(day), value: d(rate)})
	return o
}

// WithCurrentRate sets the current EUR/USD rate.
func (o *Oracle) WithCurrentRate(rate float64) *Oracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.currentRate = decimal.NewNullDecimal(d(rate))
	return o
}

// Failing makes every lookup of ticker return err.
func (o *Oracle) Failing(ticker string, err error) *Oracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures[strings.ToUpper(ticker)] = err
	return o
}

// Calls is the number of lookups served so far.
func (o *Oracle) Calls() int64 {
	return o.calls.Load()
}

func (o *Oracle) PriceOnDate(ctx context.Context, ticker string, day time.Time) (decimal.Decimal, error) {
	o.calls.Add(1)
	o.mu.RLock()
	defer o.mu.RUnlock()
	key := strings.ToUpper(ticker)
	if err, ok := o.failures[key]; ok {
		return decimal.Zero, err
	}
	return asOf(o.history[key], truncate(day))
}

func (o *Oracle) CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	o.calls.Add(1)
	o.mu.RLock()
	defer o.mu.RUnlock()
	key := strings.ToUpper(ticker)
	if err, ok := o.failures[key]; ok {
		return decimal.Zero, err
	}
	if v, ok := o.current[key]; ok {
		return v, nil
	}
	return decimal.Zero, pricing.ErrPriceUnavailable
}

func (o *Oracle) EURUSDRateOnDate(ctx context.Context, day time.Time) (decimal.Decimal, error) {
	o.calls.Add(1)
	o.mu.RLock()
	defer o.mu.RUnlock()
	return asOf(o.rates, truncate(day))
}

func (o *Oracle) CurrentEURUSDRate(ctx context.Context) (decimal.Decimal, error) {
	o.calls.Add(1)
	o.mu.RLock()
	defer o.mu.RUnlock()
	if !o.currentRate.Valid {
		return decimal.Zero, pricing.ErrPriceUnavailable
	}
	return o.currentRate.Decimal, nil
}

func truncate(t time.Time) time.Time {
	y, m, dd := t.Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

func insert(series []point, p point) []point {
	i := sort.Search(len(series), func(i int) bool { return !series[i].day.Before(p.day) })
	if i < len(series) && series[i].day.Equal(p.day) {
		series[i] = p
		return series
	}
	series = append(series, point{})
	copy(series[i+1:], series[i:])
	series[i] = p
	return series
}

func asOf(series []point, day time.Time) (decimal.Decimal, error) {
	i := sort.Search(len(series), func(i int) bool { return series[i].day.After(day) })
	if i == 0 {
		return decimal.Zero, pricing.ErrPriceUnavailable
	}
	return series[i-1].value, nil
}
