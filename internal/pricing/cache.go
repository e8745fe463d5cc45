package pricing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Store keeps oracle answers for a limited time.
type Store interface {
	Get(ctx context.Context, key string) (decimal.Decimal, bool, error)
	Set(ctx context.Context, key string, value decimal.Decimal, ttl time.Duration) error
}

// CachedOracle memoizes successful lookups of another Oracle. Current values
// live for currentTTL, historical values for historyTTL. Failures are never
// cached.
type CachedOracle struct {
	inner      Oracle
	store      Store
	currentTTL time.Duration
	historyTTL time.Duration
	logger     *logrus.Entry
}

func NewCachedOracle(inner Oracle, store Store, currentTTL, historyTTL time.Duration, logger *logrus.Logger) *CachedOracle {
	return &CachedOracle{
		inner:      inner,
		store:      store,
		currentTTL: currentTTL,
		historyTTL: historyTTL,
		logger:     logger.WithField("component", "price-cache"),
	}
}

func (c *CachedOracle) PriceOnDate(ctx context.Context, ticker string, day time.Time) (decimal.Decimal, error) {
	key := "price:" + strings.ToUpper(ticker) + ":" + day.Format("2006-01-02")
	return c.lookup(ctx, key, c.historyTTL, func() (decimal.Decimal, error) {
		return c.inner.PriceOnDate(ctx, ticker, day)
	})
}

func (c *CachedOracle) CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	key := "price:" + strings.ToUpper(ticker) + ":current"
	return c.lookup(ctx, key, c.currentTTL, func() (decimal.Decimal, error) {
		return c.inner.CurrentPrice(ctx, ticker)
	})
}

func (c *CachedOracle) EURUSDRateOnDate(ctx context.Context, day time.Time) (decimal.Decimal, error) {
	key := "fx:EURUSD:" + day.Format("2006-01-02")
	return c.lookup(ctx, key, c.historyTTL, func() (decimal.Decimal, error) {
		return c.inner.EURUSDRateOnDate(ctx, day)
	})
}

func (c *CachedOracle) CurrentEURUSDRate(ctx context.Context) (decimal.Decimal, error) {
	return c.lookup(ctx, "fx:EURUSD:current", c.currentTTL, func() (decimal.Decimal, error) {
		return c.inner.CurrentEURUSDRate(ctx)
	})
}

func (c *CachedOracle) lookup(ctx context.Context, key string, ttl time.Duration, fetch func() (decimal.Decimal, error)) (decimal.Decimal, error) {
	if v, ok, err := c.store.Get(ctx, key); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("cache read failed")
	} else if ok {
		return v, nil
	}
	v, err := fetch()
	if err != nil {
		return decimal.Zero, err
	}
	if err := c.store.Set(ctx, key, v, ttl); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("cache write failed")
	}
	return v, nil
}

type memoryEntry struct {
	value   decimal.Decimal
	expires time.Time
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	nowFunc func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		nowFunc: time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (decimal.Decimal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || !s.nowFunc().Before(e.expires) {
		return decimal.Zero, false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value decimal.Decimal, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: value, expires: s.nowFunc().Add(ttl)}
	return nil
}
