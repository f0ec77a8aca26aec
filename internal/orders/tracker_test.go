package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMergeKeepsEarlierFields(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rec := merge(StatusRecord{}, "o1", StatusQueued, Extra{
		UserID: "u1", ProductID: "p1", TotalCents: 1999,
	}, now)
	assert.Equal(t, "o1", rec.OrderID)
	assert.Equal(t, StatusQueued, rec.Status)
	assert.Equal(t, now, rec.CreatedAt)

	later := now.Add(2 * time.Second)
	rec = merge(rec, "o1", StatusProcessingPayment, Extra{}, later)
	// transition without extras keeps the earlier context
	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, "p1", rec.ProductID)
	assert.Equal(t, 1999, rec.TotalCents)
	assert.Equal(t, now, rec.CreatedAt)
	assert.Equal(t, later, rec.UpdatedAt)

	rec = merge(rec, "o1", StatusConfirmed, Extra{TxnRef: "TXN-1"}, later.Add(time.Second))
	assert.Equal(t, StatusConfirmed, rec.Status)
	assert.Equal(t, "TXN-1", rec.TxnRef)
	assert.Equal(t, 1999, rec.TotalCents)
}

func TestMergeOverwritesWithNonZeroExtras(t *testing.T) {
	now := time.Now().UTC()
	rec := merge(StatusRecord{Error: ""}, "o1", StatusFailed, Extra{Error: "oversold - insufficient stock"}, now)
	assert.Equal(t, "oversold - insufficient stock", rec.Error)

	// a later write without an error leaves the recorded one in place
	rec = merge(rec, "o1", StatusFailed, Extra{}, now)
	assert.Equal(t, "oversold - insufficient stock", rec.Error)
}

func TestMergeDropsBackwardTransitions(t *testing.T) {
	now := time.Now().UTC()

	// a fast worker writes processing and pending before the API's
	// queued write lands; the late write must not regress the record
	rec := merge(StatusRecord{}, "o1", StatusProcessing, Extra{}, now)
	rec = merge(rec, "o1", StatusPending, Extra{}, now.Add(time.Millisecond))
	late := merge(rec, "o1", StatusQueued, Extra{UserID: "u1"}, now.Add(2*time.Millisecond))

	assert.Equal(t, StatusPending, late.Status, "late queued write must be dropped")
	assert.Equal(t, rec, late, "a dropped write leaves the record untouched")
}

func TestMergeFreezesTerminalStates(t *testing.T) {
	now := time.Now().UTC()

	rec := merge(StatusRecord{}, "o1", StatusConfirmed, Extra{TxnRef: "TXN-1"}, now)

	for _, st := range []Status{StatusQueued, StatusProcessingPayment, StatusFailed, StatusPaymentFailed} {
		got := merge(rec, "o1", st, Extra{}, now.Add(time.Second))
		assert.Equal(t, StatusConfirmed, got.Status, "confirmed must not move to %s", st)
	}

	// re-writing the same terminal state stays allowed (idempotent retry)
	got := merge(rec, "o1", StatusConfirmed, Extra{}, now.Add(time.Second))
	assert.Equal(t, StatusConfirmed, got.Status)
	assert.Equal(t, "TXN-1", got.TxnRef)
}

func TestFromOrderMatchesRecordShape(t *testing.T) {
	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	o := Order{
		ID: "o9", UserID: "u9", ProductID: "p9",
		Status: StatusConfirmed, TotalCents: 500,
		CreatedAt: created, UpdatedAt: created.Add(time.Minute),
	}
	rec := FromOrder(o)
	assert.Equal(t, o.ID, rec.OrderID)
	assert.Equal(t, o.Status, rec.Status)
	assert.Equal(t, o.UserID, rec.UserID)
	assert.Equal(t, o.ProductID, rec.ProductID)
	assert.Equal(t, o.TotalCents, rec.TotalCents)
	assert.Equal(t, o.CreatedAt, rec.CreatedAt)
	assert.Equal(t, o.UpdatedAt, rec.UpdatedAt)
}
