package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter counts hits per key in fixed windows backed by Redis, so the
// budget holds across process restarts and replicas.
type RateLimiter struct {
	client *redis.Client
	prefix string
}

func NewRateLimiter(client *redis.Client, prefix string) *RateLimiter {
	return &RateLimiter{client: client, prefix: prefix}
}

// Hit records one hit against the key's current window and returns the
// count after the hit. The window TTL is set on the first hit only.
func (l *RateLimiter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	bucket := time.Now().Unix() / int64(window.Seconds())
	windowKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, bucket)

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("rate limit incr: %w", err)
	}
	return count.Val(), nil
}
