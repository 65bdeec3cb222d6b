// Package parallel provides the execution context every estimator runs its
// fork-join regions on. An Executor is passed in through configuration;
// there is no process-wide pool setting.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Executor bounds the number of goroutines a parallel region may use.
type Executor struct {
	workers int
}

// New returns an Executor with the given number of workers. A value <= 0
// means one worker per CPU.
func New(workers int) *Executor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Executor{workers: workers}
}

// Default returns an Executor sized to the machine.
func Default() *Executor {
	return New(0)
}

// Sequential returns a single-worker Executor that runs all work inline on
// the calling goroutine, in index order.
func Sequential() *Executor {
	return &Executor{workers: 1}
}

// Workers returns the worker count.
func (e *Executor) Workers() int {
	if e == nil {
		return 1
	}
	return e.workers
}

// ForEach calls fn for every i in [0, n) and blocks until all calls return.
// The first non-nil error is returned; remaining queued calls are skipped.
func (e *Executor) ForEach(n int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	if e.Workers() == 1 || n == 1 {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(e.workers)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			return fn(i)
		})
	}
	return g.Wait()
}

// Parallelize divides [0, items) into one contiguous chunk per worker and
// runs fn(start, end) on each chunk concurrently.
func (e *Executor) Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	numWorkers := e.Workers()
	if numWorkers > items {
		numWorkers = items
	}
	chunkSize := (items + numWorkers - 1) / numWorkers

	_ = e.ForEach(numWorkers, func(w int) error {
		start := w * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start < end {
			fn(start, end)
		}
		return nil
	})
}

// ParallelizeWithThreshold runs fn(0, items) inline when items does not
// exceed threshold.
func (e *Executor) ParallelizeWithThreshold(items, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	e.Parallelize(items, fn)
}
