// Package portfolio is the accounting engine: FIFO lot replay, realized
// gains, composition and performance against a benchmark.
//
// Every computation is a fresh, sequential replay of the transaction log.
// Oracle lookups are resolved up front (concurrently) and the replay itself
// runs in memory, so results depend only on the log and the oracle answers.
package portfolio

import (
	"context"
	"sync"
	"time"

	"github.com/GooferByte/portfolio-engine/internal/pricing"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Engine runs the portfolio computations against an injected oracle.
type Engine struct {
	oracle      pricing.Oracle
	logger      *logrus.Entry
	concurrency int
	now         func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithConcurrency bounds the number of in-flight oracle lookups.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithClock overrides the clock used to end the performance grid.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(oracle pricing.Oracle, logger *logrus.Logger, opts ...Option) *Engine {
	e := &Engine{
		oracle:      oracle,
		logger:      logger.WithField("component", "portfolio-engine"),
		concurrency: 8,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type quoteKind int

const (
	kindPrice quoteKind = iota
	kindCurrentPrice
	kindRate
	kindCurrentRate
)

type quoteKey struct {
	kind   quoteKind
	ticker string
	day    time.Time
}

func priceKey(ticker string, day time.Time) quoteKey {
	return quoteKey{kind: kindPrice, ticker: ticker, day: day}
}

func currentPriceKey(ticker string) quoteKey {
	return quoteKey{kind: kindCurrentPrice, ticker: ticker}
}

func rateKey(day time.Time) quoteKey { return quoteKey{kind: kindRate, day: day} }

var currentRateKey = quoteKey{kind: kindCurrentRate}

type quoteResult struct {
	value decimal.Decimal
	err   error
}

// quotes holds resolved oracle answers. Missing keys and non-positive values
// read as pricing.ErrPriceUnavailable.
type quotes map[quoteKey]quoteResult

func (q quotes) get(k quoteKey) (decimal.Decimal, error) {
	r, ok := q[k]
	if !ok {
		return decimal.Zero, pricing.ErrPriceUnavailable
	}
	if r.err != nil {
		return decimal.Zero, r.err
	}
	if !r.value.IsPositive() {
		return decimal.Zero, pricing.ErrPriceUnavailable
	}
	return r.value, nil
}

type keySet map[quoteKey]struct{}

func (s keySet) add(k quoteKey) { s[k] = struct{}{} }

// fetch resolves all keys concurrently. Individual lookup failures are kept
// in the result; only cancellation of ctx is returned as an error.
func (e *Engine) fetch(ctx context.Context, keys keySet) (quotes, error) {
	out := make(quotes, len(keys))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for k := range keys {
		k := k
		g.Go(func() error {
			v, err := e.lookup(gctx, k)
			mu.Lock()
			out[k] = quoteResult{value: v, err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) lookup(ctx context.Context, k quoteKey) (decimal.Decimal, error) {
	switch k.kind {
	case kindPrice:
		return e.oracle.PriceOnDate(ctx, k.ticker, k.day)
	case kindCurrentPrice:
		return e.oracle.CurrentPrice(ctx, k.ticker)
	case kindRate:
		return e.oracle.EURUSDRateOnDate(ctx, k.day)
	default:
		return e.oracle.CurrentEURUSDRate(ctx)
	}
}

// rate reads an EUR/USD rate and falls back to parity when it is unknown.
func (e *Engine) rate(q quotes, k quoteKey, fields logrus.Fields) decimal.Decimal {
	r, err := q.get(k)
	if err != nil {
		e.logger.WithError(err).WithFields(fields).Warn("EUR/USD rate unavailable, using 1.0")
		return one
	}
	return r
}

// pct is 100*part/whole, or zero when whole is zero.
func pct(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole)
}
