// Package ratelimit implements fixed-window request limits backed by Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"balance-ledger/internal/config"
)

const keyPrefix = "ratelimit:balance:%s"

// NewClient connects to Redis and verifies the connection with a ping.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("Connected to Redis")
	return client, nil
}

// Limiter counts requests per key in fixed windows.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewLimiter creates a new Limiter allowing limit requests per window.
func NewLimiter(client *redis.Client, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{client: client, limit: limit, window: window}
}

// windowScript increments the counter and returns it with the key's
// remaining TTL in milliseconds. A key without a TTL gets one, so a counter
// can never outlive its window.
var windowScript = redis.NewScript(`
	local count = redis.call("INCR", KEYS[1])
	local ttl = redis.call("PTTL", KEYS[1])
	if ttl < 0 then
		ttl = tonumber(ARGV[1])
		redis.call("PEXPIRE", KEYS[1], ttl)
	end
	return {count, ttl}
`)

// Allow records one request for key and reports whether it is within the
// limit. When it is not, retryAfter is the time left in the window.
func (l *Limiter) Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error) {
	redisKey := fmt.Sprintf(keyPrefix, key)

	res, err := windowScript.Run(ctx, l.client, []string{redisKey}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("unexpected rate limit reply: %v", res)
	}

	count, ttl := res[0], time.Duration(res[1])*time.Millisecond
	if count <= int64(l.limit) {
		return true, 0, nil
	}
	return false, ttl, nil
}

// Reset clears the counter for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, fmt.Sprintf(keyPrefix, key)).Err()
}
