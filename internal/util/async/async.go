package async

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunParallel executes tasks concurrently and waits for all of them.
// The context passed to tasks is cancelled as soon as one fails, and the
// first error is returned wrapped with the failing task's name.
//
// Example:
//
//	tasks := []Task{
//	    {Name: "instance ids", Func: loadInstanceIDs},
//	    {Name: "dns names", Func: loadDNSNames},
//	}
//	if err := RunParallel(ctx, tasks); err != nil {
//	    return err
//	}
func RunParallel(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error {
			if err := task.Func(gctx); err != nil {
				return fmt.Errorf("failed to run %s: %w", task.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}
