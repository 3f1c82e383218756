package inspector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/imamik/rsjoin/internal/cluster"
	"github.com/imamik/rsjoin/internal/executor"
	"github.com/imamik/rsjoin/internal/logging"
)

const (
	// StatusCommand prints the replica set status as seen by the target.
	StatusCommand = `mongo --eval "rs.status()"`

	// UninitializedMarker appears in the status output of a replica set that
	// has never been initiated.
	UninitializedMarker = "NotYetInitialized"

	// DefaultCommandTimeout bounds remote execution of status commands.
	DefaultCommandTimeout = 30 * time.Second
)

// State is the classification of a replica set.
type State string

const (
	StateUninitialized  State = "Uninitialized"
	StateMissingMembers State = "MissingMembers"
	StateReady          State = "Ready"
	StateUnknown        State = "Unknown"
)

// Result is the outcome of one inspection. Missing is set only for
// MissingMembers; Err is set only for Unknown.
type Result struct {
	State   State
	Missing []string
	Err     error
}

// Runner is the subset of *executor.Executor the inspector uses.
type Runner interface {
	Run(ctx context.Context, targets []string, command string, timeout time.Duration) (map[string]executor.Outcome, error)
}

// Inspector reads replica set status through a Runner.
type Inspector struct {
	runner  Runner
	timeout time.Duration
}

// New returns an Inspector. A zero timeout uses DefaultCommandTimeout.
func New(runner Runner, timeout time.Duration) *Inspector {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &Inspector{runner: runner, timeout: timeout}
}

// Inspect asks primary for the replica set status and compares it against
// the expected member addresses. It never returns an error; failures are
// reported as StateUnknown with Err set.
func (i *Inspector) Inspect(ctx context.Context, primary cluster.NodeIdentity, expected []string) Result {
	logger := logging.FromContext(ctx).WithValues("instance", primary.InstanceID, "slot", primary.Slot)

	if primary.InstanceID == "" {
		return unknown(errors.New("no representative member to inspect"))
	}

	outcomes, err := i.runner.Run(ctx, []string{primary.InstanceID}, StatusCommand, i.timeout)
	if err != nil {
		logger.Error(err, "failed to read replica set status")
		return unknown(err)
	}
	outcome, ok := outcomes[primary.InstanceID]
	if !ok {
		return unknown(fmt.Errorf("no status outcome for %s", primary.InstanceID))
	}
	if outcome.Status != executor.StatusSuccess {
		err := fmt.Errorf("status command %s on %s: %s", outcome.Status, primary.InstanceID, outcome.Detail)
		logger.Info("replica set status unavailable", "status", outcome.Status, "detail", outcome.Detail)
		return unknown(err)
	}

	result := Classify(outcome.Output, expected)
	logger.Info("inspected replica set", "state", result.State, "missing", result.Missing)
	return result
}

// Classify derives the state from status output. The missing set is built
// fresh on every call, in expected order.
func Classify(output string, expected []string) Result {
	if strings.Contains(output, UninitializedMarker) {
		return Result{State: StateUninitialized}
	}

	var missing []string
	for _, addr := range expected {
		if !containsHost(output, addr) {
			missing = append(missing, addr)
		}
	}
	if len(missing) > 0 {
		return Result{State: StateMissingMembers, Missing: missing}
	}
	return Result{State: StateReady}
}

func unknown(err error) Result {
	return Result{State: StateUnknown, Err: err}
}

// containsHost reports whether addr appears in output as a whole host name,
// so that "dns1" is not matched by "dns11".
func containsHost(output, addr string) bool {
	if addr == "" {
		return false
	}
	for start := 0; ; {
		idx := strings.Index(output[start:], addr)
		if idx < 0 {
			return false
		}
		begin := start + idx
		end := begin + len(addr)
		leftOK := begin == 0 || !isHostByte(output[begin-1])
		rightOK := end == len(output) || !isHostByte(output[end])
		if leftOK && rightOK {
			return true
		}
		start = begin + 1
	}
}

func isHostByte(b byte) bool {
	return b == '.' || b == '-' || b == '_' ||
		('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}
