package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginThrottle is a fixed-window attempt counter.
// Key format: login:<email>
type LoginThrottle struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewLoginThrottle(client *redis.Client, limit int, window time.Duration) *LoginThrottle {
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	return &LoginThrottle{client: client, limit: int64(limit), window: window}
}

func (t *LoginThrottle) Allow(ctx context.Context, key string) (bool, error) {
	k := "login:" + key

	pipe := t.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, t.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("login throttle: %w", err)
	}
	return incr.Val() <= t.limit, nil
}
