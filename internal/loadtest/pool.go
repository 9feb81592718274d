package loadtest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/todoapi/internal/domain/model"
)

// counts tallies request outcomes.
type counts struct {
	ok       int64
	conflict int64
	failed   int64
}

// runPool fans items out to workers calling fn and tallies the outcomes.
func runPool(ctx context.Context, workers int, items []model.TodoItem, fn func(context.Context, model.TodoItem) outcome) counts {
	var (
		c  counts
		wg sync.WaitGroup
	)
	itemCh := make(chan model.TodoItem, workers*workerChannelMultiplier)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemCh {
				if ctx.Err() != nil {
					atomic.AddInt64(&c.failed, 1)
					continue
				}
				switch fn(ctx, item) {
				case outcomeOK:
					atomic.AddInt64(&c.ok, 1)
				case outcomeConflict:
					atomic.AddInt64(&c.conflict, 1)
				default:
					atomic.AddInt64(&c.failed, 1)
				}
			}
		}()
	}

	for _, item := range items {
		itemCh <- item
	}
	close(itemCh)
	wg.Wait()

	return c
}
