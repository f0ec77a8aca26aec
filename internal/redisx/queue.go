package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue is a durable FIFO over Redis lists. Delivery is at-least-once:
// a job popped by a crashed worker is lost from the list but downstream
// writes are idempotent on order id, so re-submission is safe.
type Queue struct {
	R *redis.Client
}

func (q *Queue) Push(ctx context.Context, name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return q.R.LPush(ctx, name, b).Err()
}

// Pop blocks up to timeout for the oldest job. Returns (false, nil) on
// an empty queue so worker loops can re-check their shutdown signal.
func (q *Queue) Pop(ctx context.Context, name string, timeout time.Duration, out any) (bool, error) {
	res, err := q.R.BRPop(ctx, timeout, name).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	// BRPOP returns [key, value]
	if len(res) != 2 {
		return false, nil
	}
	if err := json.Unmarshal([]byte(res[1]), out); err != nil {
		return false, err
	}
	return true, nil
}

func (q *Queue) Length(ctx context.Context, name string) (int64, error) {
	return q.R.LLen(ctx, name).Result()
}

func (q *Queue) Clear(ctx context.Context, name string) error {
	return q.R.Del(ctx, name).Err()
}
