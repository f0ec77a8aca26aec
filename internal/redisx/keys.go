package redisx

import "time"

const (
	// Reservation counter per product: product:{id}:stock -> int
	KeyStock = "product:%s:stock"

	// Cached product data for the hot path: product:{id}:data -> {"id","name","price_cents"}
	KeyProductData = "product:%s:data"

	// Order status tracker: order:{order_id}:status -> JSON record
	KeyOrderStatus = "order:%s:status"

	// Idempotency guard: idem:{fingerprint} -> {"pending":true} | {"status","body"}
	KeyIdem = "idem:%s"

	// Fixed-window rate limiter: ratelimit:{identity} -> counter
	KeyRateLimit = "ratelimit:%s"
)

// Work queues (Redis lists, FIFO via LPUSH/BRPOP).
const (
	QueueOrders   = "queue:orders"
	QueuePayments = "queue:payments"
)

var (
	TTLIdempotency = time.Hour
	TTLStatusCache = 10 * time.Minute
	TTLProductData = 24 * time.Hour
)
