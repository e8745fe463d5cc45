package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const redisKeyPrefix = "portfolio:"

// RedisStore shares oracle answers between server instances.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the Redis server at rawURL (redis://...).
func NewRedisStore(ctx context.Context, rawURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (decimal.Decimal, bool, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to get key: %w", err)
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("corrupt cached value for %s: %w", key, err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value decimal.Decimal, ttl time.Duration) error {
	return s.client.Set(ctx, redisKeyPrefix+key, value.String(), ttl).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
