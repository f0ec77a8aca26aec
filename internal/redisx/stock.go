package redisx

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// StockStore holds the per-product reservation counter. The counter is a
// fast admission gate seeded from the durable ledger; the ledger row stays
// the final authority and is only decremented by the payment stage.
type StockStore struct {
	R *redis.Client
}

func stockKey(productID string) string { return fmt.Sprintf(KeyStock, productID) }

// Reserve takes one unit via atomic DECR. A negative result means the
// stock was already exhausted: undo with INCR and deny. Any Redis error
// denies too — the gate fails closed rather than letting requests through
// uncounted.
func (s *StockStore) Reserve(ctx context.Context, productID string) (granted bool, remaining int64, err error) {
	n, err := s.R.Decr(ctx, stockKey(productID)).Result()
	if err != nil {
		return false, 0, err
	}
	if n < 0 {
		_ = s.R.Incr(ctx, stockKey(productID)).Err()
		return false, n, nil
	}
	return true, n, nil
}

// Release returns a reserved unit, used to compensate failed orders.
func (s *StockStore) Release(ctx context.Context, productID string) error {
	return s.R.Incr(ctx, stockKey(productID)).Err()
}

// Sync overwrites the counter with a known-good ledger value and publishes
// it on the product's channel for live stock displays.
func (s *StockStore) Sync(ctx context.Context, productID string, stock int) error {
	key := stockKey(productID)
	pipe := s.R.Pipeline()
	pipe.Set(ctx, key, strconv.Itoa(stock), 0)
	pipe.Publish(ctx, key, strconv.Itoa(stock))
	_, err := pipe.Exec(ctx)
	return err
}

// Seed initializes the counter without publishing (startup/seed path).
func (s *StockStore) Seed(ctx context.Context, productID string, stock int) error {
	return s.R.Set(ctx, stockKey(productID), strconv.Itoa(stock), 0).Err()
}

func (s *StockStore) Current(ctx context.Context, productID string) (int64, error) {
	return s.R.Get(ctx, stockKey(productID)).Int64()
}

// Subscribe returns the pub/sub channel carrying stock updates for one
// product. Callers must Close it on disconnect.
func (s *StockStore) Subscribe(ctx context.Context, productID string) *redis.PubSub {
	return s.R.Subscribe(ctx, stockKey(productID))
}
