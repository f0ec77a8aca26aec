package payment

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatorValidatesRequest(t *testing.T) {
	g := NewSimulator(0, 0)

	_, err := g.Charge(context.Background(), ChargeRequest{OrderID: "o1", AmountCents: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = g.Charge(context.Background(), ChargeRequest{OrderID: "o1", AmountCents: -5})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = g.Charge(context.Background(), ChargeRequest{AmountCents: 100})
	assert.ErrorIs(t, err, ErrMissingOrder)
}

func TestSimulatorSucceedsWithTxnRef(t *testing.T) {
	g := NewSimulator(0, 0)
	res, err := g.Charge(context.Background(), ChargeRequest{OrderID: "o1", AmountCents: 1999})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, strings.HasPrefix(res.TxnRef, "TXN-"), "got %q", res.TxnRef)
}

func TestSimulatorAlwaysDeclines(t *testing.T) {
	g := NewSimulator(0, 1)
	for i := 0; i < 5; i++ {
		res, err := g.Charge(context.Background(), ChargeRequest{OrderID: "o1", AmountCents: 100})
		require.NoError(t, err, "a decline is a verdict, not an error")
		assert.False(t, res.Success)
		assert.NotEmpty(t, res.Reason)
	}
}

func TestSimulatorRespectsDeadline(t *testing.T) {
	g := NewSimulator(5*time.Second, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := g.Charge(ctx, ChargeRequest{OrderID: "o1", AmountCents: 100})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second, "charge must give up at the deadline, not after the full latency")
}
