package pricing

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type quote struct {
	price     decimal.Decimal
	timestamp time.Time
}

// RandomOracle mocks a market data provider with deterministic pseudo-random
// quotes. Historical values are stable per (ticker, day).
type RandomOracle struct {
	mu      sync.Mutex
	cache   map[string]quote
	ttl     time.Duration
	nowFunc func() time.Time
}

func NewRandomOracle(ttl time.Duration) *RandomOracle {
	return &RandomOracle{
		cache:   make(map[string]quote),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

func (s *RandomOracle) CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return decimal.Zero, ErrPriceUnavailable
	}
	return s.latest(ticker, func(now time.Time) decimal.Decimal {
		return s.generatePrice(ticker, now)
	}), nil
}

func (s *RandomOracle) PriceOnDate(ctx context.Context, ticker string, day time.Time) (decimal.Decimal, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return decimal.Zero, ErrPriceUnavailable
	}
	return s.generatePrice(ticker, anchor(day)), nil
}

func (s *RandomOracle) CurrentEURUSDRate(ctx context.Context) (decimal.Decimal, error) {
	return s.latest(EURUSDTicker, s.generateRate), nil
}

func (s *RandomOracle) EURUSDRateOnDate(ctx context.Context, day time.Time) (decimal.Decimal, error) {
	return s.generateRate(anchor(day)), nil
}

func (s *RandomOracle) latest(key string, gen func(time.Time) decimal.Decimal) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFunc()
	if q, ok := s.cache[key]; ok && now.Sub(q.timestamp) < s.ttl {
		return q.price
	}
	price := gen(now)
	s.cache[key] = quote{price: price, timestamp: now}
	return price
}

// anchor normalizes to noon of the day to keep values stable per day.
func anchor(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, time.UTC)
}

func (s *RandomOracle) generatePrice(ticker string, t time.Time) decimal.Decimal {
	r := seeded(fmt.Sprintf("%s-%d-%d-%d", ticker, t.Year(), t.YearDay(), t.Hour()))
	// Price range between 80 and 2000 to mimic liquid stocks.
	price := 80 + r.Float64()*1920
	return decimal.NewFromFloat(price).Round(2)
}

func (s *RandomOracle) generateRate(t time.Time) decimal.Decimal {
	r := seeded(fmt.Sprintf("%s-%d-%d", EURUSDTicker, t.Year(), t.YearDay()))
	// EUR/USD between 1.00 and 1.20.
	rate := 1 + r.Float64()*0.2
	return decimal.NewFromFloat(rate).Round(4)
}

func seeded(key string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}
