package utils

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInPool(t *testing.T) {
	queue := make(chan int, 20)
	for i := 0; i < 20; i++ {
		queue <- i
	}
	close(queue)

	completed := make(chan CompletedTask[int], 20)
	RunInPool(context.Background(), func(_ context.Context, n int) (int, error) {
		if n%5 == 0 {
			return 0, fmt.Errorf("task %d failed", n)
		}
		return n * n, nil
	}, queue, completed, 4)

	var results []int
	failures := 0
	for task := range completed {
		if task.Error != nil {
			failures++
			continue
		}
		results = append(results, task.Result)
	}

	assert.Equal(t, 4, failures)
	require.Len(t, results, 16)

	sort.Ints(results)
	assert.Equal(t, 1, results[0])
	assert.Equal(t, 361, results[len(results)-1])
}

func TestRunInPoolEmptyQueue(t *testing.T) {
	queue := make(chan int)
	close(queue)

	completed := make(chan CompletedTask[int])
	RunInPool(context.Background(), func(_ context.Context, n int) (int, error) { return n, nil }, queue, completed, 4)

	_, ok := <-completed
	assert.False(t, ok)
}

func TestRunInPoolCancellation(t *testing.T) {
	queue := make(chan int, 100)
	for i := 0; i < 100; i++ {
		queue <- i
	}
	close(queue)

	ctx, cancel := context.WithCancel(context.Background())

	processed := 0
	completed := make(chan CompletedTask[int], 100)
	RunInPool(ctx, func(_ context.Context, n int) (int, error) {
		processed++
		if processed == 3 {
			cancel()
		}
		return n, nil
	}, queue, completed, 1)

	results := 0
	for range completed {
		results++
	}

	// The remaining queue is abandoned once the context is cancelled.
	assert.Less(t, results, 100)
	assert.GreaterOrEqual(t, results, 3)
}
