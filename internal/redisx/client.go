package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	r := redis.NewClient(&redis.Options{Addr: addr})
	_ = r.WithTimeout(2 * time.Second)
	return r
}

// ProductData is the slice of the product row cached for the buy path,
// so the hot path never touches Postgres.
type ProductData struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int    `json:"price_cents"`
}

func SetProductData(ctx context.Context, rdb *redis.Client, p ProductData) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, fmt.Sprintf(KeyProductData, p.ID), b, TTLProductData).Err()
}

func GetProductData(ctx context.Context, rdb *redis.Client, productID string) (*ProductData, error) {
	raw, err := rdb.Get(ctx, fmt.Sprintf(KeyProductData, productID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p ProductData
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, err
	}
	return &p, nil
}
