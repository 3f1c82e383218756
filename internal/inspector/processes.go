package inspector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/imamik/rsjoin/internal/cluster"
	"github.com/imamik/rsjoin/internal/executor"
	"github.com/imamik/rsjoin/internal/logging"
)

const (
	// ProcessCommand prints the database process if its pid file is live.
	ProcessCommand = "ps -q `cat /var/run/mongodb/mongod.pid`"

	processName = "mongod"
)

// ErrNodesNotReady is returned when a member has no running database process.
var ErrNodesNotReady = errors.New("database process not running on all members")

// NotReadyError lists the members whose process check failed.
type NotReadyError struct {
	InstanceIDs []string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNodesNotReady, strings.Join(e.InstanceIDs, ", "))
}

func (e *NotReadyError) Is(target error) bool {
	return target == ErrNodesNotReady
}

// CheckProcesses confirms that every node runs the database process. All
// nodes are checked with a single dispatch.
func (i *Inspector) CheckProcesses(ctx context.Context, nodes []cluster.NodeIdentity) error {
	if len(nodes) == 0 {
		return nil
	}
	targets := make([]string, 0, len(nodes))
	for _, n := range nodes {
		targets = append(targets, n.InstanceID)
	}

	outcomes, err := i.runner.Run(ctx, targets, ProcessCommand, i.timeout)
	if err != nil {
		return err
	}

	var notReady []string
	for _, target := range targets {
		o, ok := outcomes[target]
		if !ok || o.Status != executor.StatusSuccess || !strings.Contains(o.Output, processName) {
			notReady = append(notReady, target)
		}
	}
	if len(notReady) > 0 {
		sort.Strings(notReady)
		logging.FromContext(ctx).Info("members not ready", "instances", notReady)
		return &NotReadyError{InstanceIDs: notReady}
	}
	return nil
}
