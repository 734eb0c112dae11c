package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter counts requests per identifier in fixed windows so that every
// instance behind a load balancer shares the same budget.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window.
func NewRateLimiter(cache *Cache, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: cache.Client(), limit: limit, window: window, now: time.Now}
}

// Allow increments the counter of the current window and reports whether
// the request fits the budget.
func (l *RateLimiter) Allow(ctx context.Context, identifier string) (bool, error) {
	key := RateLimitKey(identifier, l.now().UnixNano()/int64(l.window))

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, l.window)
		return nil
	})
	if err != nil {
		return false, err
	}
	return incr.Val() <= int64(l.limit), nil
}
