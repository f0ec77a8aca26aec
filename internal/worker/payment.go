package worker

import (
	"context"
	"errors"
	"log"
	"time"

	kafkax "github.com/ariefcatur/go-flash-sale.git/internal/kafka"
	"github.com/ariefcatur/go-flash-sale.git/internal/orders"
	"github.com/ariefcatur/go-flash-sale.git/internal/payment"
	"github.com/ariefcatur/go-flash-sale.git/internal/redisx"
	kafkago "github.com/segmentio/kafka-go"
)

// PaymentStore is the ledger surface the payment stage needs. Settle is
// the only durable-stock mutation in the system.
type PaymentStore interface {
	UpdateOrderStatus(ctx context.Context, orderID string, s orders.Status) error
	Settle(ctx context.Context, orderID, productID string) (stock int, err error)
}

// PaymentWorker finalizes orders: gateway charge, row-locked ledger
// settlement, and compensation of the cache reservation on every failure
// path. The compensating Release always runs before any other failure
// side effect.
type PaymentWorker struct {
	Queue          Queue
	Store          PaymentStore
	Tracker        Tracker
	Stock          StockCache
	Gateway        payment.Gateway
	Producer       *kafkax.Producer // optional order.finalized stream
	ServiceName    string
	PopTimeout     time.Duration
	GatewayTimeout time.Duration
}

func (w *PaymentWorker) Run(ctx context.Context, n int) {
	runLoops(ctx, n, w.loop)
}

func (w *PaymentWorker) loop(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var job orders.PaymentJob
		ok, err := w.Queue.Pop(ctx, redisx.QueuePayments, w.PopTimeout, &job)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[payment-worker %d] pop: %v", id, err)
			time.Sleep(time.Second)
			continue
		}
		if !ok {
			continue
		}
		w.handle(ctx, id, job)
	}
}

func (w *PaymentWorker) handle(ctx context.Context, id int, job orders.PaymentJob) {
	_ = w.Tracker.Set(ctx, job.OrderID, orders.StatusProcessingPayment, orders.Extra{})

	// gateway timeout is bounded independently of the worker's lifetime
	gctx, cancel := context.WithTimeout(ctx, w.GatewayTimeout)
	res, err := w.Gateway.Charge(gctx, payment.ChargeRequest{
		OrderID:     job.OrderID,
		AmountCents: job.AmountCents,
		Currency:    "USD",
		Method:      "credit_card",
	})
	cancel()

	if err != nil {
		log.Printf("[payment-worker %d] gateway error for %s: %v", id, job.OrderID, err)
		w.fail(ctx, job, orders.StatusFailed, err.Error())
		return
	}
	if !res.Success {
		log.Printf("[payment-worker %d] payment declined for %s: %s", id, job.OrderID, res.Reason)
		w.fail(ctx, job, orders.StatusPaymentFailed, res.Reason)
		return
	}

	stock, err := w.Store.Settle(ctx, job.OrderID, job.ProductID)
	if errors.Is(err, orders.ErrOversold) {
		log.Printf("[payment-worker %d] oversold on %s: ledger stock %d, resyncing counter", id, job.ProductID, stock)
		// release first, then pin the counter back to ledger truth
		_ = w.Stock.Release(ctx, job.ProductID)
		_ = w.Stock.Sync(ctx, job.ProductID, stock)
		_ = w.Store.UpdateOrderStatus(ctx, job.OrderID, orders.StatusFailed)
		_ = w.Tracker.Set(ctx, job.OrderID, orders.StatusFailed, orders.Extra{Error: "oversold - insufficient stock"})
		w.emitFinalized(job.OrderID, orders.StatusFailed, "", "oversold")
		return
	}
	if err != nil {
		log.Printf("[payment-worker %d] settle %s failed: %v", id, job.OrderID, err)
		w.fail(ctx, job, orders.StatusFailed, err.Error())
		return
	}

	// Settle already confirmed the row; publish the fresh ledger stock
	_ = w.Stock.Sync(ctx, job.ProductID, stock)
	_ = w.Tracker.Set(ctx, job.OrderID, orders.StatusConfirmed, orders.Extra{TxnRef: res.TxnRef})
	w.emitFinalized(job.OrderID, orders.StatusConfirmed, res.TxnRef, "")
	log.Printf("[payment-worker %d] order %s confirmed, stock now %d", id, job.OrderID, stock)
}

// fail compensates a reservation that never consumed ledger stock. The
// Release comes first: everything after it is best-effort.
func (w *PaymentWorker) fail(ctx context.Context, job orders.PaymentJob, st orders.Status, reason string) {
	if err := w.Stock.Release(ctx, job.ProductID); err != nil {
		log.Printf("[payment-worker] release %s failed, reservation leaked until reconciled: %v", job.ProductID, err)
	}
	_ = w.Store.UpdateOrderStatus(ctx, job.OrderID, st)
	_ = w.Tracker.Set(ctx, job.OrderID, st, orders.Extra{Error: reason})
	w.emitFinalized(job.OrderID, st, "", reason)
}

func (w *PaymentWorker) emitFinalized(orderID string, st orders.Status, txnRef, reason string) {
	if w.Producer == nil {
		return
	}
	ev := orders.NewEnvelope(orders.EventOrderFinalized, w.ServiceName, orderID, "", orders.OrderFinalizedPayload{
		OrderID:     orderID,
		FinalStatus: st,
		TxnRef:      txnRef,
		Reason:      reason,
	})
	w.Producer.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderFinalized)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
