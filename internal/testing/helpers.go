package testing

import (
	"context"
	"testing"
	"time"
)

// TestContext returns a context with a reasonable timeout for tests.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// Epoch is the start time of every fake clock in the shared fixtures.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
