package async

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
)

func TestRunParallel_Success(t *testing.T) {
	var count atomic.Int32

	tasks := []Task{
		{Name: "task1", Func: func(_ context.Context) error {
			count.Add(1)
			return nil
		}},
		{Name: "task2", Func: func(_ context.Context) error {
			count.Add(1)
			return nil
		}},
		{Name: "task3", Func: func(_ context.Context) error {
			count.Add(1)
			return nil
		}},
	}

	if err := RunParallel(context.Background(), tasks); err != nil {
		t.Errorf("expected no error, got: %v", err)
	}
	if count.Load() != 3 {
		t.Errorf("expected 3 tasks to run, got %d", count.Load())
	}
}

func TestRunParallel_EmptyTasks(t *testing.T) {
	if err := RunParallel(context.Background(), nil); err != nil {
		t.Errorf("expected no error for empty tasks, got: %v", err)
	}
}

func TestRunParallel_Error(t *testing.T) {
	expectedErr := errors.New("task failed")

	tasks := []Task{
		{Name: "success", Func: func(_ context.Context) error {
			return nil
		}},
		{Name: "failing", Func: func(_ context.Context) error {
			return expectedErr
		}},
	}

	err := RunParallel(context.Background(), tasks)
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected error to wrap %v, got: %v", expectedErr, err)
	}
	if !strings.Contains(err.Error(), "failing") {
		t.Errorf("expected task name in error, got: %v", err)
	}
}

func TestRunParallel_CancelsSiblings(t *testing.T) {
	tasks := []Task{
		{Name: "failing", Func: func(_ context.Context) error {
			return errors.New("boom")
		}},
		{Name: "waiting", Func: func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		}},
	}

	if err := RunParallel(context.Background(), tasks); err == nil {
		t.Error("expected error, got nil")
	}
}
