package orders

import "time"

type Product struct {
	ID         string
	Name       string
	Stock      int
	PriceCents int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Order is the durable ledger row. The ID is caller-visible and derived
// from timestamp+user+product so clients can correlate before the row
// exists (the worker creates it later, idempotently on this ID).
type Order struct {
	ID         string
	UserID     string
	ProductID  string
	Status     Status
	TotalCents int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
