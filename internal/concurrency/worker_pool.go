package concurrency

import (
	"context"
	"sync"
)

// WorkerFn handles task index i.
type WorkerFn func(ctx context.Context, i int) error

// ForEach runs fn for every index in [0, tasks) on at most concurrency goroutines.
// The first error cancels the remaining work and is returned.
func ForEach(ctx context.Context, concurrency, tasks int, fn WorkerFn) error {
	if tasks <= 0 {
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > tasks {
		concurrency = tasks
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int)
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := fn(ctx, i); err != nil {
					fail(err)
				}
			}
		}()
	}

send:
	for i := 0; i < tasks; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break send
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
