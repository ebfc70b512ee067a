package concurrency

import (
	"context"
	"errors"
	"sync"
)

// ForEach runs fn for every item with at most workers goroutines in
// flight. It waits for all started work, collects every error rather than
// stopping at the first, and stops dispatching new work once ctx is done.
// Each fn call receives the same ctx and is expected to honor it.
func ForEach[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T) error) error {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}
	if len(items) == 0 {
		return nil
	}

	jobs := make(chan T)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				// Drain without working once the caller gave up.
				if ctx.Err() != nil {
					continue
				}
				if err := fn(ctx, item); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}
		}()
	}

	for _, item := range items {
		jobs <- item
	}
	close(jobs)
	wg.Wait()

	return errors.Join(errs...)
}
