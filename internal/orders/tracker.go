package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-flash-sale.git/internal/redisx"
	"github.com/redis/go-redis/v9"
)

// StatusRecord is the cache-resident view of an order's lifecycle,
// written by every pipeline stage and read by client polling. Ephemeral:
// after the TTL callers fall back to the ledger row.
type StatusRecord struct {
	OrderID    string    `json:"order_id"`
	Status     Status    `json:"status"`
	UserID     string    `json:"user_id,omitempty"`
	ProductID  string    `json:"product_id,omitempty"`
	TotalCents int       `json:"total_cents,omitempty"`
	TxnRef     string    `json:"txn_ref,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Extra carries optional fields merged into the record on a transition.
type Extra struct {
	UserID     string
	ProductID  string
	TotalCents int
	TxnRef     string
	Error      string
}

// merge overlays a transition onto the current record. Non-zero extras
// win; everything else carries over. Writes that would move the
// lifecycle backwards are dropped: pipeline stages race each other on
// the cache (the API's queued write can land after a fast worker's
// pending), and a poller must never observe the status regress or a
// terminal state change.
func merge(cur StatusRecord, orderID string, st Status, extra Extra, now time.Time) StatusRecord {
	if cur.Status != "" {
		if cur.Status.Terminal() && st != cur.Status {
			return cur
		}
		if Rank(st) < Rank(cur.Status) {
			return cur
		}
	}
	cur.OrderID = orderID
	cur.Status = st
	cur.UpdatedAt = now
	if cur.CreatedAt.IsZero() {
		cur.CreatedAt = now
	}
	if extra.UserID != "" {
		cur.UserID = extra.UserID
	}
	if extra.ProductID != "" {
		cur.ProductID = extra.ProductID
	}
	if extra.TotalCents != 0 {
		cur.TotalCents = extra.TotalCents
	}
	if extra.TxnRef != "" {
		cur.TxnRef = extra.TxnRef
	}
	if extra.Error != "" {
		cur.Error = extra.Error
	}
	return cur
}

type Tracker struct {
	R   *redis.Client
	TTL time.Duration
}

func statusKey(orderID string) string { return fmt.Sprintf(redisx.KeyOrderStatus, orderID) }

// Set merges the transition into the cached record and refreshes the TTL.
// Best-effort read of the current record: a missing or corrupt entry just
// means we start from empty.
func (t *Tracker) Set(ctx context.Context, orderID string, st Status, extra Extra) error {
	var cur StatusRecord
	if raw, err := t.R.Get(ctx, statusKey(orderID)).Result(); err == nil {
		_ = json.Unmarshal([]byte(raw), &cur)
	}

	rec := merge(cur, orderID, st, extra, time.Now().UTC())
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return t.R.Set(ctx, statusKey(orderID), b, t.TTL).Err()
}

// Get returns the cached record or nil when absent/expired.
func (t *Tracker) Get(ctx context.Context, orderID string) (*StatusRecord, error) {
	raw, err := t.R.Get(ctx, statusKey(orderID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec StatusRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// FromOrder reconstructs the record shape from the ledger row so the
// status endpoint returns a uniform contract regardless of source.
func FromOrder(o Order) StatusRecord {
	return StatusRecord{
		OrderID:    o.ID,
		Status:     o.Status,
		UserID:     o.UserID,
		ProductID:  o.ProductID,
		TotalCents: o.TotalCents,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}
