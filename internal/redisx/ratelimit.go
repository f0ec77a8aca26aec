package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter per caller identity. Shedding
// only; inventory correctness never depends on it.
type RateLimiter struct {
	R      *redis.Client
	Limit  int
	Window time.Duration
}

// Allow counts one request for id. When the window quota is exceeded the
// request is denied and retryAfter carries the window's remaining TTL.
func (l *RateLimiter) Allow(ctx context.Context, id string) (ok bool, remaining int, retryAfter time.Duration, err error) {
	key := fmt.Sprintf(KeyRateLimit, id)

	n, err := l.R.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, 0, err
	}
	if n == 1 {
		// first hit opens the window; EXPIRE keeps the counter from leaking
		_ = l.R.Expire(ctx, key, l.Window).Err()
	}

	if n > int64(l.Limit) {
		ttl, terr := l.R.TTL(ctx, key).Result()
		if terr != nil || ttl <= 0 {
			ttl = l.Window
		}
		return false, 0, ttl, nil
	}

	rem := l.Limit - int(n)
	if rem < 0 {
		rem = 0
	}
	return true, rem, 0, nil
}
