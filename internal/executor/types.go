package executor

import (
	"context"
	"strings"
	"time"
)

// Status is the state of a command invocation on one target.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusDelayed    Status = "Delayed"
	StatusSuccess    Status = "Success"
	StatusFailed     Status = "Failed"
	StatusTimedOut   Status = "TimedOut"
	StatusCancelled  Status = "Cancelled"
)

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusTimedOut, StatusCancelled:
		return true
	default:
		return false
	}
}

// SuccessMarker is printed by the database shell when an admin command succeeds.
const SuccessMarker = `"ok" : 1`

// Invocation is one poll result for a command on one target.
type Invocation struct {
	Status Status
	Output string
	Detail string
}

// Dispatcher submits commands and reports per-target invocation state.
type Dispatcher interface {
	Submit(ctx context.Context, targets []string, command string, timeout time.Duration) (string, error)
	Poll(ctx context.Context, commandID, target string) (Invocation, error)
}

// Outcome is the terminal result for one target. Status is always Success,
// Failed or TimedOut.
type Outcome struct {
	Status Status
	Output string
	Detail string
}

// Succeeded reports transport success and, when marker is set, that the
// output carries it.
func (o Outcome) Succeeded(marker string) bool {
	if o.Status != StatusSuccess {
		return false
	}
	return marker == "" || strings.Contains(o.Output, marker)
}

func outcomeFrom(inv Invocation) Outcome {
	status := inv.Status
	if status == StatusCancelled {
		status = StatusFailed
	}
	return Outcome{Status: status, Output: inv.Output, Detail: inv.Detail}
}
