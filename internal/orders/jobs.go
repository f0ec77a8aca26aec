package orders

import (
	"fmt"
	"time"
)

// OrderJob travels on queue:orders from the API to the order workers.
type OrderJob struct {
	OrderID    string `json:"order_id"`
	UserID     string `json:"user_id"`
	ProductID  string `json:"product_id"`
	PriceCents int    `json:"price_cents"`
	EnqueuedAt int64  `json:"enqueued_at"`
}

// PaymentJob travels on queue:payments from the order workers to the
// payment workers. Same order id end to end.
type PaymentJob struct {
	OrderID     string `json:"order_id"`
	UserID      string `json:"user_id"`
	ProductID   string `json:"product_id"`
	AmountCents int    `json:"amount_cents"`
	EnqueuedAt  int64  `json:"enqueued_at"`
}

// NewOrderID builds the caller-visible id: <unixmilli>_<user>_<product>.
func NewOrderID(userID, productID string) string {
	return fmt.Sprintf("%d_%s_%s", time.Now().UnixMilli(), userID, productID)
}
