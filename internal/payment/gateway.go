package payment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type ChargeRequest struct {
	OrderID     string
	AmountCents int
	Currency    string
	Method      string
}

// Result is the gateway's verdict. Success carries an opaque transaction
// reference; a decline carries the processor's reason. A decline is not
// an error — errors mean the gateway could not be reached or the request
// was malformed.
type Result struct {
	Success bool
	TxnRef  string
	Reason  string
}

type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (Result, error)
}

var (
	ErrInvalidAmount = errors.New("invalid payment amount")
	ErrMissingOrder  = errors.New("order id is required")
)

// Simulator stands in for the external processor: fixed latency, a
// configurable decline rate, and a TXN reference on success.
type Simulator struct {
	Latency  time.Duration
	FailRate float64 // 0..1 fraction of charges declined

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSimulator(latency time.Duration, failRate float64) *Simulator {
	return &Simulator{
		Latency:  latency,
		FailRate: failRate,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *Simulator) Charge(ctx context.Context, req ChargeRequest) (Result, error) {
	if req.AmountCents <= 0 {
		return Result{}, ErrInvalidAmount
	}
	if req.OrderID == "" {
		return Result{}, ErrMissingOrder
	}

	// latency respects the caller's deadline
	if g.Latency > 0 {
		select {
		case <-time.After(g.Latency):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}

	if g.declined() {
		return Result{Success: false, Reason: "payment declined by processor"}, nil
	}

	ref := fmt.Sprintf("TXN-%d-%s", time.Now().UnixMilli(),
		strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:7]))
	return Result{Success: true, TxnRef: ref}, nil
}

func (g *Simulator) declined() bool {
	if g.FailRate <= 0 {
		return false
	}
	if g.FailRate >= 1 {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Float64() < g.FailRate
}
