package dashboard

import (
	"context"
	"sync"

	"soxmon/pkg/client"
)

// taskResult is what one branch of the fan-out reports.
type taskResult struct {
	index    int
	resource Resource
	apply    applyFunc
	err      error
}

// executeTasks runs every task in its own goroutine. The returned channel is
// closed once all of them have finished. A failing task does not cancel the
// others.
func executeTasks(ctx context.Context, c *client.Client, tasks []task) <-chan taskResult {
	results := make(chan taskResult, len(tasks))

	if len(tasks) == 0 {
		close(results)
		return results
	}

	var waitGroup sync.WaitGroup
	for i, t := range tasks {
		waitGroup.Add(1)
		go func(index int, t task) {
			defer waitGroup.Done()

			apply, err := t.run(ctx, c)
			results <- taskResult{index: index, resource: t.resource, apply: apply, err: err}
		}(i, t)
	}

	go func() {
		waitGroup.Wait()
		close(results)
	}()

	return results
}
