package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ariefcatur/go-flash-sale.git/internal/orders"
)

// Queue is the slice of redisx.Queue the workers use.
type Queue interface {
	Push(ctx context.Context, name string, v any) error
	Pop(ctx context.Context, name string, timeout time.Duration, out any) (bool, error)
}

// Tracker mirrors orders.Tracker.Set.
type Tracker interface {
	Set(ctx context.Context, orderID string, st orders.Status, extra orders.Extra) error
}

// StockCache is the reservation-counter side of redisx.StockStore.
type StockCache interface {
	Release(ctx context.Context, productID string) error
	Sync(ctx context.Context, productID string, stock int) error
}

// runLoops starts n identical worker loops and blocks until all return.
// Shutdown is the context: each loop re-checks it at the pop boundary,
// so in-flight jobs finish before the pool drains.
func runLoops(ctx context.Context, n int, loop func(ctx context.Context, id int)) {
	if n <= 0 {
		n = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			loop(ctx, id)
		}(i)
	}
	wg.Wait()
}
