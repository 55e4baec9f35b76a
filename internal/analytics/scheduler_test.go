package analytics

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAllConcurrencyCeiling(t *testing.T) {
	const (
		numTasks       = 50
		maxConcurrency = 4
	)

	var current, peak int64
	tasks := make([]func(context.Context) (int, error), numTasks)
	for i := range tasks {
		i := i
		tasks[i] = func(ctx context.Context) (int, error) {
			n := atomic.AddInt64(&current, 1)
			// Track the highest number of tasks observed in flight.
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt64(&current, -1)
			return i, nil
		}
	}

	results := RunAll(context.Background(), tasks, maxConcurrency)

	require.Len(t, results, numTasks)
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(maxConcurrency))
	assert.Greater(t, atomic.LoadInt64(&peak), int64(1), "tasks never overlapped")
}

func TestRunAllPreservesInputOrder(t *testing.T) {
	tasks := make([]func(context.Context) (int, error), 20)
	for i := range tasks {
		i := i
		tasks[i] = func(ctx context.Context) (int, error) {
			// Stagger completion so later tasks often finish first.
			time.Sleep(time.Duration(20-i) * time.Millisecond)
			return i, nil
		}
	}

	results := RunAll(context.Background(), tasks, 10)

	require.Len(t, results, 20)
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, i, r.Value, "result %d out of order", i)
	}
}

func TestRunAllFailureIsolation(t *testing.T) {
	failure := errors.New("upstream exploded")
	tasks := make([]func(context.Context) (string, error), 10)
	for i := range tasks {
		i := i
		tasks[i] = func(ctx context.Context) (string, error) {
			if i%3 == 0 {
				return "", failure
			}
			return fmt.Sprintf("ok-%d", i), nil
		}
	}

	results := RunAll(context.Background(), tasks, 3)

	require.Len(t, results, 10)
	for i, r := range results {
		if i%3 == 0 {
			assert.ErrorIs(t, r.Err, failure)
		} else {
			require.NoError(t, r.Err)
			assert.Equal(t, fmt.Sprintf("ok-%d", i), r.Value)
		}
	}
}

func TestRunAllCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int64
	tasks := make([]func(context.Context) (int, error), 5)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (int, error) {
			atomic.AddInt64(&calls, 1)
			return 0, nil
		}
	}

	results := RunAll(ctx, tasks, 2)

	require.Len(t, results, 5)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.Zero(t, atomic.LoadInt64(&calls), "no task should launch after cancellation")
}

func TestRunAllEmpty(t *testing.T) {
	results := RunAll[int](context.Background(), nil, 10)
	assert.Empty(t, results)
}
