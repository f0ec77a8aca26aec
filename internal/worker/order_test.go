package worker

import (
	"context"
	"testing"
	"time"

	"github.com/ariefcatur/go-flash-sale.git/internal/orders"
	"github.com/ariefcatur/go-flash-sale.git/internal/redisx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockQueue records pushes and serves pops from a per-queue slice.
type mockQueue struct {
	pushed  map[string][]any
	pushErr error
}

func newMockQueue() *mockQueue {
	return &mockQueue{pushed: map[string][]any{}}
}

func (m *mockQueue) Push(ctx context.Context, name string, v any) error {
	if m.pushErr != nil {
		return m.pushErr
	}
	m.pushed[name] = append(m.pushed[name], v)
	return nil
}

func (m *mockQueue) Pop(ctx context.Context, name string, timeout time.Duration, out any) (bool, error) {
	return false, nil
}

type mockOrderStore struct {
	exists    bool
	existsErr error
	created   []orders.Order
	createErr error
	statuses  map[string]orders.Status
}

func newMockOrderStore() *mockOrderStore {
	return &mockOrderStore{statuses: map[string]orders.Status{}}
}

func (m *mockOrderStore) OrderExists(ctx context.Context, orderID string) (bool, error) {
	return m.exists, m.existsErr
}

func (m *mockOrderStore) CreateOrder(ctx context.Context, o orders.Order) (bool, error) {
	if m.createErr != nil {
		return false, m.createErr
	}
	m.created = append(m.created, o)
	return true, nil
}

func (m *mockOrderStore) UpdateOrderStatus(ctx context.Context, orderID string, s orders.Status) error {
	m.statuses[orderID] = s
	return nil
}

// mockTracker records the status sequence per order.
type mockTracker struct {
	seq    map[string][]orders.Status
	extras map[string][]orders.Extra
}

func newMockTracker() *mockTracker {
	return &mockTracker{seq: map[string][]orders.Status{}, extras: map[string][]orders.Extra{}}
}

func (m *mockTracker) Set(ctx context.Context, orderID string, st orders.Status, extra orders.Extra) error {
	m.seq[orderID] = append(m.seq[orderID], st)
	m.extras[orderID] = append(m.extras[orderID], extra)
	return nil
}

func (m *mockTracker) last(orderID string) orders.Status {
	s := m.seq[orderID]
	if len(s) == 0 {
		return ""
	}
	return s[len(s)-1]
}

func testOrderJob() orders.OrderJob {
	return orders.OrderJob{
		OrderID:    "1700000000000_u1_p1",
		UserID:     "u1",
		ProductID:  "p1",
		PriceCents: 1999,
		EnqueuedAt: time.Now().UnixMilli(),
	}
}

func TestOrderWorkerPersistsAndForwards(t *testing.T) {
	q := newMockQueue()
	store := newMockOrderStore()
	tr := newMockTracker()
	w := &OrderWorker{Queue: q, Store: store, Tracker: tr, PopTimeout: time.Second}

	job := testOrderJob()
	w.handle(context.Background(), 0, job)

	require.Len(t, store.created, 1)
	assert.Equal(t, job.OrderID, store.created[0].ID)
	assert.Equal(t, job.PriceCents, store.created[0].TotalCents)

	require.Len(t, q.pushed[redisx.QueuePayments], 1)
	pay := q.pushed[redisx.QueuePayments][0].(orders.PaymentJob)
	assert.Equal(t, job.OrderID, pay.OrderID, "payment job carries the same order id")
	assert.Equal(t, job.PriceCents, pay.AmountCents)

	assert.Equal(t, []orders.Status{
		orders.StatusProcessing, orders.StatusPending, orders.StatusAwaitingPayment,
	}, tr.seq[job.OrderID])
}

func TestOrderWorkerSkipsDuplicateDelivery(t *testing.T) {
	q := newMockQueue()
	store := newMockOrderStore()
	store.exists = true
	tr := newMockTracker()
	w := &OrderWorker{Queue: q, Store: store, Tracker: tr, PopTimeout: time.Second}

	w.handle(context.Background(), 0, testOrderJob())

	assert.Empty(t, store.created, "redelivered job must not create a second row")
	assert.Empty(t, q.pushed[redisx.QueuePayments], "no duplicate payment job")
	assert.Empty(t, tr.seq, "no status churn on a duplicate")
}

func TestOrderWorkerPersistFailure(t *testing.T) {
	q := newMockQueue()
	store := newMockOrderStore()
	store.createErr = assert.AnError
	tr := newMockTracker()
	w := &OrderWorker{Queue: q, Store: store, Tracker: tr, PopTimeout: time.Second}

	job := testOrderJob()
	w.handle(context.Background(), 0, job)

	assert.Empty(t, q.pushed[redisx.QueuePayments], "failed persist must not enqueue payment")
	assert.Equal(t, orders.StatusFailed, tr.last(job.OrderID))

	// error detail reaches the tracker
	extras := tr.extras[job.OrderID]
	assert.NotEmpty(t, extras[len(extras)-1].Error)
}

func TestOrderWorkerEnqueueFailure(t *testing.T) {
	q := newMockQueue()
	q.pushErr = assert.AnError
	store := newMockOrderStore()
	tr := newMockTracker()
	w := &OrderWorker{Queue: q, Store: store, Tracker: tr, PopTimeout: time.Second}

	job := testOrderJob()
	w.handle(context.Background(), 0, job)

	require.Len(t, store.created, 1, "the row was persisted before the enqueue failed")
	assert.Equal(t, orders.StatusFailed, store.statuses[job.OrderID], "ledger row marked failed")
	assert.Equal(t, orders.StatusFailed, tr.last(job.OrderID))
}
