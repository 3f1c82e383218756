package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/imamik/rsjoin/internal/convergence"
	"github.com/imamik/rsjoin/internal/gate"
)

// MemoryOracle is an in-memory gate.Oracle. StartRun is atomic, so at most
// one run per workflow is active.
type MemoryOracle struct {
	mu       sync.Mutex
	active   map[string]int
	checks   map[string]int
	releases map[string]int
	started  []convergence.RunInput
	finished []convergence.Report
	seq      int

	// ActiveErr, if set, is returned by ActiveRuns.
	ActiveErr error
	// OnStart, if set, runs inside StartRun before the claim is made.
	OnStart func(workflowID string)
}

// NewMemoryOracle returns an oracle with no active runs.
func NewMemoryOracle() *MemoryOracle {
	return &MemoryOracle{
		active:   make(map[string]int),
		checks:   make(map[string]int),
		releases: make(map[string]int),
	}
}

// Hold marks n runs as active for workflowID, as if started elsewhere.
func (o *MemoryOracle) Hold(workflowID string, n int) *MemoryOracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active[workflowID] += n
	return o
}

// ReleaseAfter clears held runs for workflowID once ActiveRuns has been
// called checks times.
func (o *MemoryOracle) ReleaseAfter(workflowID string, checks int) *MemoryOracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.releases[workflowID] = checks
	return o
}

func (o *MemoryOracle) ActiveRuns(_ context.Context, workflowID string) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ActiveErr != nil {
		return 0, o.ActiveErr
	}
	o.checks[workflowID]++
	if n, ok := o.releases[workflowID]; ok && o.checks[workflowID] > n {
		o.active[workflowID] = 0
		delete(o.releases, workflowID)
	}
	return o.active[workflowID], nil
}

func (o *MemoryOracle) StartRun(_ context.Context, workflowID string, input convergence.RunInput) (gate.RunHandle, error) {
	if o.OnStart != nil {
		o.OnStart(workflowID)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active[workflowID] > 0 {
		return nil, gate.ErrRunActive
	}
	o.active[workflowID] = 1
	o.seq++
	o.started = append(o.started, input)
	return &memoryRun{oracle: o, workflowID: workflowID, id: fmt.Sprintf("run-%d", o.seq)}, nil
}

// Checks returns how many times ActiveRuns was called for workflowID.
func (o *MemoryOracle) Checks(workflowID string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.checks[workflowID]
}

// Active returns the active run count for workflowID.
func (o *MemoryOracle) Active(workflowID string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active[workflowID]
}

// Started returns the inputs of every started run.
func (o *MemoryOracle) Started() []convergence.RunInput {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]convergence.RunInput(nil), o.started...)
}

// Finished returns the reports of every finished run.
func (o *MemoryOracle) Finished() []convergence.Report {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]convergence.Report(nil), o.finished...)
}

type memoryRun struct {
	oracle     *MemoryOracle
	workflowID string
	id         string
	done       bool
}

func (r *memoryRun) ID() string { return r.id }

// Finish fails without releasing the claim when ctx is done, as a remote
// oracle call would.
func (r *memoryRun) Finish(ctx context.Context, report convergence.Report) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("finish run %s: %w", r.id, err)
	}
	r.oracle.mu.Lock()
	defer r.oracle.mu.Unlock()
	if r.done {
		return fmt.Errorf("run %s already finished", r.id)
	}
	r.done = true
	r.oracle.active[r.workflowID]--
	r.oracle.finished = append(r.oracle.finished, report)
	return nil
}
