package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bioage-mcp-server/internal/domain"
)

const redisKeyPrefix = "bioage:history:"

// RedisCache is the shared tier, storing JSON envelopes with their expiry.
type RedisCache struct {
	redis *redis.Client
	ttl   time.Duration
}

type cachedPage struct {
	Data      []*domain.AssessmentResult `json:"data"`
	CachedAt  time.Time                  `json:"cached_at"`
	ExpiresAt time.Time                  `json:"expires_at"`
}

// NewRedisCache connects to the configured Redis and verifies it with a ping.
func NewRedisCache(ctx context.Context, config domain.CacheConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheFromClient(client, config.DefaultTTL), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCache{redis: client, ttl: ttl}
}

func redisKey(ownerID string) string {
	return redisKeyPrefix + ownerID
}

// Get returns the cached page. Corrupt or expired envelopes are deleted and
// reported as a miss.
func (c *RedisCache) Get(ctx context.Context, ownerID string) ([]*domain.AssessmentResult, bool, error) {
	key := redisKey(ownerID)

	val, err := c.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get history cache: %w", err)
	}

	var cached cachedPage
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	return cached.Data, true, nil
}

// Set stores page for the configured TTL.
func (c *RedisCache) Set(ctx context.Context, ownerID string, page []*domain.AssessmentResult) error {
	now := time.Now()
	cached := cachedPage{
		Data:      page,
		CachedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal history cache data: %w", err)
	}

	return c.redis.Set(ctx, redisKey(ownerID), data, c.ttl).Err()
}

// Delete drops the owner's entry.
func (c *RedisCache) Delete(ctx context.Context, ownerID string) error {
	return c.redis.Del(ctx, redisKey(ownerID)).Err()
}

// Name identifies the component in health reports.
func (c *RedisCache) Name() string {
	return "redis"
}

// Health pings Redis.
func (c *RedisCache) Health(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the client.
func (c *RedisCache) Close() error {
	return c.redis.Close()
}
