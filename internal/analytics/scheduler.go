package analytics

import (
	"context"
	"sync"
)

// Result holds the outcome of one scheduled task.
type Result[T any] struct {
	Value T
	Err   error
}

// RunAll executes every task with at most maxConcurrency in flight at once
// and returns one Result per task, in input order, regardless of completion
// order. A failing task never cancels or blocks its siblings. RunAll
// returns only after every launched task has resolved.
//
// Context cancellation stops new tasks from launching; tasks already in
// flight run to completion. Unlaunched tasks report the context error.
func RunAll[T any](ctx context.Context, tasks []func(context.Context) (T, error), maxConcurrency int) []Result[T] {
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}

	results := make([]Result[T], len(tasks))
	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup

	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			results[i] = Result[T]{Err: err}
			continue
		}
		select {
		case <-ctx.Done():
			results[i] = Result[T]{Err: ctx.Err()}
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, task func(context.Context) (T, error)) {
			defer wg.Done()
			defer func() { <-sem }()

			value, err := task(ctx)
			// Each goroutine writes only its own slot, so no lock is needed.
			results[i] = Result[T]{Value: value, Err: err}
		}(i, task)
	}

	wg.Wait()
	return results
}
