package executor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/imamik/rsjoin/internal/cluster"
	"github.com/imamik/rsjoin/internal/logging"
	"github.com/imamik/rsjoin/internal/metrics"
	"github.com/imamik/rsjoin/internal/util/retry"
)

const deadlineDetail = "invocation deadline exceeded"

var tracer = otel.Tracer("github.com/imamik/rsjoin/internal/executor")

// Policy is the poll policy for submitted commands.
type Policy struct {
	Settle   time.Duration
	Interval time.Duration
	Clock    retry.Clock
}

// DefaultPolicy waits 5s before the first check and 5s between checks.
func DefaultPolicy() Policy {
	return Policy{Settle: retry.DefaultSettle, Interval: retry.DefaultInterval, Clock: retry.RealClock()}
}

// Poller returns the retry.Poller implementing p.
func (p Policy) Poller() retry.Poller {
	return retry.Poller{SettleDelay: p.Settle, Interval: p.Interval, Clock: p.Clock}
}

// Executor runs commands through a Dispatcher.
type Executor struct {
	dispatcher Dispatcher
	policy     Policy
	kind       string
}

// New returns an Executor using dispatcher and policy.
func New(dispatcher Dispatcher, policy Policy) *Executor {
	return &Executor{dispatcher: dispatcher, policy: policy, kind: "command"}
}

// Named returns a copy whose outcomes are counted under kind.
func (e *Executor) Named(kind string) *Executor {
	cp := *e
	cp.kind = kind
	return &cp
}

// Run submits command to targets and waits for every target to finish.
//
// A submit failure returns a *cluster.TransportError and no outcomes. Once
// submitted, every target gets an outcome: a poll error marks that target
// Failed, and cancellation of ctx marks the target and all targets after it
// TimedOut.
func (e *Executor) Run(ctx context.Context, targets []string, command string, timeout time.Duration) (map[string]Outcome, error) {
	ctx, span := tracer.Start(ctx, "executor.Run")
	defer span.End()
	span.SetAttributes(attribute.String("rsjoin.command.kind", e.kind), attribute.Int("rsjoin.targets", len(targets)))

	logger := logging.FromContext(ctx).WithValues("command", e.kind)

	commandID, err := e.dispatcher.Submit(ctx, targets, command, timeout)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit failed")
		logger.Error(err, "failed to submit command", "targets", targets)
		return nil, cluster.Transport("submit command", err)
	}
	logger = logger.WithValues("commandId", commandID)
	logger.V(1).Info("command submitted", "targets", targets)

	poller := e.policy.Poller()
	outcomes := make(map[string]Outcome, len(targets))

	if err := poller.WaitSettle(ctx); err != nil {
		for _, target := range targets {
			outcomes[target] = e.record(Outcome{Status: StatusTimedOut, Detail: deadlineDetail})
		}
		return outcomes, nil
	}

	for _, target := range targets {
		outcomes[target] = e.record(e.wait(ctx, poller, commandID, target))
	}
	return outcomes, nil
}

func (e *Executor) wait(ctx context.Context, poller retry.Poller, commandID, target string) Outcome {
	logger := logging.FromContext(ctx).WithValues("command", e.kind, "commandId", commandID, "instance", target)

	var last Invocation
	err := poller.Until(ctx, func(ctx context.Context) (bool, error) {
		inv, err := e.dispatcher.Poll(ctx, commandID, target)
		if err != nil {
			return false, cluster.Transport("poll command", err)
		}
		last = inv
		logger.V(1).Info("polled command", "status", inv.Status)
		return inv.Status.Terminal(), nil
	})

	switch {
	case err == nil:
		return outcomeFrom(last)
	case ctx.Err() != nil:
		logger.Info("stopped waiting for command", "reason", deadlineDetail)
		return Outcome{Status: StatusTimedOut, Output: last.Output, Detail: deadlineDetail}
	default:
		logger.Error(err, "failed to poll command")
		return Outcome{Status: StatusFailed, Detail: err.Error()}
	}
}

func (e *Executor) record(o Outcome) Outcome {
	metrics.RecordCommandOutcome(e.kind, string(o.Status))
	return o
}
