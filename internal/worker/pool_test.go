package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunLoopsStartsNAndDrainsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var started int32
	done := make(chan struct{})
	go func() {
		runLoops(ctx, 4, func(ctx context.Context, id int) {
			atomic.AddInt32(&started, 1)
			<-ctx.Done()
		})
		close(done)
	}()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&started) == 4 },
		time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool did not drain after cancellation")
	}
}

func TestRunLoopsDefaultsToOneWorker(t *testing.T) {
	var started int32
	runLoops(context.Background(), 0, func(ctx context.Context, id int) {
		atomic.AddInt32(&started, 1)
	})
	assert.Equal(t, int32(1), started)
}
