package orders

type Status string

const (
	StatusQueued            Status = "queued"
	StatusProcessing        Status = "processing"
	StatusPending           Status = "pending"
	StatusAwaitingPayment   Status = "awaiting_payment"
	StatusProcessingPayment Status = "processing_payment"
	StatusConfirmed         Status = "confirmed"
	StatusPaymentFailed     Status = "payment_failed"
	StatusFailed            Status = "failed"
)

// Any non-terminal stage may short-circuit straight to failed.
var validNext = map[Status]map[Status]bool{
	StatusQueued:            {StatusProcessing: true, StatusFailed: true},
	StatusProcessing:        {StatusPending: true, StatusFailed: true},
	StatusPending:           {StatusAwaitingPayment: true, StatusFailed: true},
	StatusAwaitingPayment:   {StatusProcessingPayment: true, StatusFailed: true},
	StatusProcessingPayment: {StatusConfirmed: true, StatusPaymentFailed: true, StatusFailed: true},
	StatusConfirmed:         {},
	StatusPaymentFailed:     {},
	StatusFailed:            {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Terminal() bool {
	return len(validNext[s]) == 0 && s != ""
}

// rank drives monotonicity checks: a poller must never observe the
// lifecycle move backwards.
var rank = map[Status]int{
	StatusQueued:            0,
	StatusProcessing:        1,
	StatusPending:           2,
	StatusAwaitingPayment:   3,
	StatusProcessingPayment: 4,
	StatusConfirmed:         5,
	StatusPaymentFailed:     5,
	StatusFailed:            5,
}

func Rank(s Status) int { return rank[s] }
