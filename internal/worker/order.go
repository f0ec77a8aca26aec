package worker

import (
	"context"
	"log"
	"time"

	"github.com/ariefcatur/go-flash-sale.git/internal/orders"
	"github.com/ariefcatur/go-flash-sale.git/internal/redisx"
)

// OrderStore is the ledger surface the order stage needs.
type OrderStore interface {
	OrderExists(ctx context.Context, orderID string) (bool, error)
	CreateOrder(ctx context.Context, o orders.Order) (bool, error)
	UpdateOrderStatus(ctx context.Context, orderID string, s orders.Status) error
}

// OrderWorker consumes order jobs, persists the order row and forwards a
// payment job. It never releases the reservation: only the payment stage
// knows the final financial outcome, so compensation lives there.
type OrderWorker struct {
	Queue      Queue
	Store      OrderStore
	Tracker    Tracker
	PopTimeout time.Duration
}

func (w *OrderWorker) Run(ctx context.Context, n int) {
	runLoops(ctx, n, w.loop)
}

func (w *OrderWorker) loop(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var job orders.OrderJob
		ok, err := w.Queue.Pop(ctx, redisx.QueueOrders, w.PopTimeout, &job)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[order-worker %d] pop: %v", id, err)
			time.Sleep(time.Second)
			continue
		}
		if !ok {
			continue
		}
		w.handle(ctx, id, job)
	}
}

func (w *OrderWorker) handle(ctx context.Context, id int, job orders.OrderJob) {
	// at-least-once safety: a redelivered job must not touch anything
	if exists, err := w.Store.OrderExists(ctx, job.OrderID); err != nil {
		log.Printf("[order-worker %d] exists check %s: %v", id, job.OrderID, err)
		return
	} else if exists {
		log.Printf("[order-worker %d] order %s already persisted, skipping", id, job.OrderID)
		return
	}

	_ = w.Tracker.Set(ctx, job.OrderID, orders.StatusProcessing, orders.Extra{})

	created, err := w.Store.CreateOrder(ctx, orders.Order{
		ID:         job.OrderID,
		UserID:     job.UserID,
		ProductID:  job.ProductID,
		TotalCents: job.PriceCents,
	})
	if err != nil {
		// The reservation stays held: releasing here could double-release
		// against the payment stage. Operators watch for this line.
		log.Printf("[order-worker %d] persist %s failed, reservation leaked until reconciled: %v", id, job.OrderID, err)
		_ = w.Tracker.Set(ctx, job.OrderID, orders.StatusFailed, orders.Extra{Error: err.Error()})
		return
	}
	if !created {
		log.Printf("[order-worker %d] order %s raced an earlier delivery, skipping", id, job.OrderID)
		return
	}

	// status claims durability only after the commit above
	_ = w.Tracker.Set(ctx, job.OrderID, orders.StatusPending, orders.Extra{
		UserID: job.UserID, ProductID: job.ProductID, TotalCents: job.PriceCents,
	})
	_ = w.Tracker.Set(ctx, job.OrderID, orders.StatusAwaitingPayment, orders.Extra{})

	pay := orders.PaymentJob{
		OrderID:     job.OrderID,
		UserID:      job.UserID,
		ProductID:   job.ProductID,
		AmountCents: job.PriceCents,
		EnqueuedAt:  time.Now().UnixMilli(),
	}
	if err := w.Queue.Push(ctx, redisx.QueuePayments, pay); err != nil {
		log.Printf("[order-worker %d] enqueue payment %s failed, reservation leaked until reconciled: %v", id, job.OrderID, err)
		_ = w.Store.UpdateOrderStatus(ctx, job.OrderID, orders.StatusFailed)
		_ = w.Tracker.Set(ctx, job.OrderID, orders.StatusFailed, orders.Extra{Error: err.Error()})
		return
	}

	log.Printf("[order-worker %d] order %s persisted, payment queued", id, job.OrderID)
}
