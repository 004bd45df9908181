package utils

import (
	"context"
	"sync"
)

type CompletedTask[T any] struct {
	Result T
	Error  error
}

// RunInPool fans the queued work out over maxWorkers goroutines and closes
// completed once the queue is drained. Cancelling the context stops workers
// from picking up further work; in-flight tasks finish and their results are
// still delivered.
func RunInPool[In any, Out any](ctx context.Context, worker func(context.Context, In) (Out, error), queue chan In, completed chan CompletedTask[Out], maxWorkers int) {
	workers := min(len(queue), maxWorkers)

	go func() {
		wg := sync.WaitGroup{}
		wg.Add(workers)

		for i := 0; i < workers; i++ {
			go func() {
				defer wg.Done()

				for {
					if ctx.Err() != nil {
						return
					}

					select {
					case <-ctx.Done():
						return
					case next, ok := <-queue:
						if !ok {
							return
						}

						res, err := worker(ctx, next)
						if err != nil {
							completed <- CompletedTask[Out]{Error: err}
						} else {
							completed <- CompletedTask[Out]{Result: res, Error: nil}
						}
					}
				}
			}()
		}

		wg.Wait()

		close(completed)
	}()
}
