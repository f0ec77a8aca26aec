package orders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLifecycleTransitions(t *testing.T) {
	happy := []Status{
		StatusQueued, StatusProcessing, StatusPending,
		StatusAwaitingPayment, StatusProcessingPayment, StatusConfirmed,
	}
	for i := 0; i < len(happy)-1; i++ {
		assert.True(t, CanTransition(happy[i], happy[i+1]),
			"%s -> %s should be allowed", happy[i], happy[i+1])
	}

	// every non-terminal stage may short-circuit to failed
	for _, s := range []Status{StatusQueued, StatusProcessing, StatusPending, StatusAwaitingPayment, StatusProcessingPayment} {
		assert.True(t, CanTransition(s, StatusFailed), "%s -> failed", s)
	}

	// no going backwards
	assert.False(t, CanTransition(StatusPending, StatusQueued))
	assert.False(t, CanTransition(StatusProcessingPayment, StatusAwaitingPayment))
}

func TestTerminalStates(t *testing.T) {
	for _, s := range []Status{StatusConfirmed, StatusPaymentFailed, StatusFailed} {
		assert.True(t, s.Terminal(), "%s is terminal", s)
		for _, to := range []Status{StatusQueued, StatusProcessing, StatusPending, StatusConfirmed, StatusFailed} {
			assert.False(t, CanTransition(s, to), "%s must not transition to %s", s, to)
		}
	}
	assert.False(t, StatusQueued.Terminal())
	assert.False(t, Status("").Terminal())
}

func TestRankMonotonic(t *testing.T) {
	order := []Status{
		StatusQueued, StatusProcessing, StatusPending,
		StatusAwaitingPayment, StatusProcessingPayment, StatusConfirmed,
	}
	for i := 0; i < len(order)-1; i++ {
		assert.Less(t, Rank(order[i]), Rank(order[i+1]))
	}
	// all terminal outcomes share the top rank
	assert.Equal(t, Rank(StatusConfirmed), Rank(StatusPaymentFailed))
	assert.Equal(t, Rank(StatusConfirmed), Rank(StatusFailed))
}

func TestNewOrderID(t *testing.T) {
	id := NewOrderID("u42", "p7")
	parts := strings.SplitN(id, "_", 3)
	assert.Len(t, parts, 3)
	assert.Equal(t, "u42", parts[1])
	assert.Equal(t, "p7", parts[2])
}
