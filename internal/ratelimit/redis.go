package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter counts requests per caller in fixed one-minute windows shared
// by every server instance.
type RedisLimiter struct {
	client    *redis.Client
	perMinute int
}

// NewRedisLimiter creates a RedisLimiter from a Redis URL.
func NewRedisLimiter(redisURL string, perMinute int) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return &RedisLimiter{client: redis.NewClient(opts), perMinute: normalizeLimit(perMinute)}, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, caller string) (Result, error) {
	count, ttl, err := l.incrWithExpiry(ctx, Key(caller), Window)
	if err != nil {
		return Result{}, err
	}

	remaining := l.perMinute - int(count)
	if remaining < 0 {
		remaining = 0
	}
	if ttl <= 0 {
		ttl = Window
	}
	return Result{
		Allowed:    count <= int64(l.perMinute),
		Limit:      l.perMinute,
		Remaining:  remaining,
		RetryAfter: ttl,
	}, nil
}

// incrWithExpiry bumps the counter and starts its window on first use.
func (l *RedisLimiter) incrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, time.Duration, error) {
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, expiry)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	return incr.Val(), ttl.Val(), nil
}

func (l *RedisLimiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

// Compile-time check that RedisLimiter implements Limiter.
var _ Limiter = (*RedisLimiter)(nil)
