package schedule

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Run executes fn for every task marked StatusRebuild using a bounded worker
// pool. Each artifact key is dispatched at most once per run even when the
// task list carries duplicates. A failing task records its error and returns
// to StatusUnresolved; other tasks keep running. Run itself only returns an
// error when the context is cancelled.
func Run(ctx context.Context, workers int, tasks []*Task, fn func(context.Context, *Task) error) error {
	if workers < 1 {
		workers = 1
	}
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	dispatched := make(map[string]bool, len(tasks))
	for _, task := range tasks {
		if task.Status != StatusRebuild {
			continue
		}
		key := task.Daily.Key()
		if dispatched[key] {
			continue
		}
		dispatched[key] = true

		task := task
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, task); err != nil {
				task.Err = err
				task.Status = StatusUnresolved
			}
			return nil
		})
	}
	return group.Wait()
}
