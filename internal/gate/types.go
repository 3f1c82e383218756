package gate

import (
	"context"
	"errors"
	"time"

	"github.com/imamik/rsjoin/internal/cluster"
	"github.com/imamik/rsjoin/internal/convergence"
)

// ErrRunActive is returned by Oracle.StartRun when another run holds the
// workflow.
var ErrRunActive = errors.New("another convergence run is active")

// RunHandle is a started run. Finish must be called exactly once.
type RunHandle interface {
	ID() string
	Finish(ctx context.Context, report convergence.Report) error
}

// Oracle tracks active convergence runs per workflow.
type Oracle interface {
	// ActiveRuns returns how many runs are in flight for workflowID.
	ActiveRuns(ctx context.Context, workflowID string) (int, error)
	// StartRun claims workflowID. It returns ErrRunActive if the workflow is
	// already claimed.
	StartRun(ctx context.Context, workflowID string, input convergence.RunInput) (RunHandle, error)
}

// Converger runs one convergence pass.
type Converger interface {
	Converge(ctx context.Context, in convergence.RunInput) convergence.Report
}

// Trigger is a node-ready event.
type Trigger struct {
	Identity  cluster.Identity
	Slot      string
	MessageID string
}

// Budget bounds how long Admit may wait for an active run to finish.
type Budget struct {
	// Deadline is when the invocation is cut off. Zero means no deadline.
	Deadline time.Time
	// Buffer is the time kept in reserve to report a deferral.
	Buffer time.Duration
}

// Remaining returns the usable time left at now, after the buffer.
func (b Budget) Remaining(now time.Time) (time.Duration, bool) {
	if b.Deadline.IsZero() {
		return 0, false
	}
	return b.Deadline.Sub(now) - b.Buffer, true
}

// Outcome is the gate's verdict for one trigger.
type Outcome string

const (
	Started  Outcome = "started"
	Deferred Outcome = "deferred"
)

// Decision is the result of Admit. Report is set when Outcome is Started.
type Decision struct {
	Outcome Outcome
	RunID   string
	Report  *convergence.Report
}
