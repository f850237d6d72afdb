package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"holidaysri-engine/internal/config"
	"holidaysri-engine/internal/models"
)

const rateKey = "holidaysri:exchange_rates"

// RedisRateCache keeps the current exchange rates in redis so that every request
// does not hit the database
type RedisRateCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRateCache connects to redis and verifies the connection
func NewRedisRateCache(ctx context.Context, cfg config.RedisConfig) (*RedisRateCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisRateCache{client: client, ttl: cfg.RateTTL}, nil
}

// Get returns the cached rates; ok is false on a miss
func (c *RedisRateCache) Get(ctx context.Context) (models.ExchangeRateConfig, bool, error) {
	var rates models.ExchangeRateConfig
	raw, err := c.client.Get(ctx, rateKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return rates, false, nil
	}
	if err != nil {
		return rates, false, err
	}
	if err := json.Unmarshal(raw, &rates); err != nil {
		return rates, false, fmt.Errorf("failed to decode cached rates: %w", err)
	}
	return rates, true, nil
}

// Set stores rates with the configured TTL
func (c *RedisRateCache) Set(ctx context.Context, rates models.ExchangeRateConfig) error {
	raw, err := json.Marshal(rates)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, rateKey, raw, c.ttl).Err()
}

// Invalidate drops the cached rates
func (c *RedisRateCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, rateKey).Err()
}

// Close releases the redis connection pool
func (c *RedisRateCache) Close() error {
	return c.client.Close()
}
