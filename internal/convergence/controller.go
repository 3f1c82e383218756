package convergence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/imamik/rsjoin/internal/cluster"
	"github.com/imamik/rsjoin/internal/executor"
	"github.com/imamik/rsjoin/internal/inspector"
	"github.com/imamik/rsjoin/internal/logging"
	"github.com/imamik/rsjoin/internal/metrics"
	"github.com/imamik/rsjoin/internal/util/retry"
)

var tracer = otel.Tracer("github.com/imamik/rsjoin/internal/convergence")

// Options tunes the commands a Controller issues.
type Options struct {
	MemberPort        int
	NewMemberPriority int
	NewMemberVotes    int
	VerifyProcesses   bool
	CommandTimeout    time.Duration
	Clock             retry.Clock
}

// DefaultOptions adds members on 27017 with no priority and no vote, and
// checks member processes first.
func DefaultOptions() Options {
	return Options{
		MemberPort:      27017,
		VerifyProcesses: true,
		CommandTimeout:  inspector.DefaultCommandTimeout,
		Clock:           retry.RealClock(),
	}
}

// Controller runs single-pass convergence.
type Controller struct {
	runner    inspector.Runner
	inspector *inspector.Inspector
	opts      Options
}

// New returns a Controller issuing commands through runner.
func New(runner inspector.Runner, opts Options) *Controller {
	if opts.MemberPort == 0 {
		opts.MemberPort = 27017
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = inspector.DefaultCommandTimeout
	}
	if opts.Clock == nil {
		opts.Clock = retry.RealClock()
	}
	return &Controller{
		runner:    runner,
		inspector: inspector.New(runner, opts.CommandTimeout),
		opts:      opts,
	}
}

// Converge inspects the replica set described by in and applies at most one
// corrective action.
func (c *Controller) Converge(ctx context.Context, in RunInput) Report {
	id := in.Identity()
	ctx, logger := logging.WithCluster(ctx, id)
	ctx, span := tracer.Start(ctx, "convergence.Converge")
	defer span.End()
	span.SetAttributes(attribute.String("rsjoin.cluster", id.WorkflowID()), attribute.Int("rsjoin.members", len(in.Nodes.ID)))

	report := Report{Identity: id, Action: ActionNone, StartedAt: c.opts.Clock.Now()}
	defer func() {
		report.FinishedAt = c.opts.Clock.Now()
		metrics.RecordConvergence(id.WorkflowID(), string(report.Action), string(report.Result), report.Duration().Seconds())
		if report.Err != nil {
			span.RecordError(report.Err)
			span.SetStatus(codes.Error, string(report.Result))
		}
		span.SetAttributes(attribute.String("rsjoin.action", string(report.Action)), attribute.String("rsjoin.result", string(report.Result)))
	}()

	members, err := in.Membership()
	if err != nil {
		report.fail(err)
		logger.Error(err, "invalid run input")
		return report
	}
	primary, ok := members.Representative()
	if !ok {
		report.State = inspector.StateUnknown
		report.fail(errors.New("membership is empty"))
		logger.Info("no registered members, nothing to converge")
		return report
	}

	if c.opts.VerifyProcesses {
		if err := c.inspector.CheckProcesses(ctx, members.Nodes); err != nil {
			report.State = inspector.StateUnknown
			report.fail(err)
			logger.Info("members not ready, skipping convergence", "reason", err.Error())
			return report
		}
	}

	status := c.inspector.Inspect(ctx, primary, members.Addresses())
	report.State = status.State

	switch status.State {
	case inspector.StateUninitialized:
		report.Action = ActionInit
		c.initiate(ctx, &report, members, primary)
	case inspector.StateMissingMembers:
		report.Action = ActionAdd
		c.addMembers(ctx, &report, primary, status.Missing)
	case inspector.StateReady:
		report.Result = ResultSuccess
		logger.Info("replica set already converged")
	default:
		report.fail(status.Err)
		logger.Info("replica set state unknown, no action taken")
	}
	return report
}

func (c *Controller) initiate(ctx context.Context, report *Report, members cluster.Membership, primary cluster.NodeIdentity) {
	logger := logging.FromContext(ctx).WithValues("instance", primary.InstanceID)

	script := InitiateScript(members.Identity.ReplicaSetName(), members.Addresses(), c.opts.MemberPort)
	logger.Info("initiating replica set", "script", script)

	outcome, err := c.runOne(ctx, primary.InstanceID, ShellCommand(script))
	if err != nil {
		report.fail(err)
		logger.Error(err, "failed to initiate replica set")
		return
	}
	if !outcome.Succeeded(executor.SuccessMarker) {
		report.fail(fmt.Errorf("rs.initiate %s: %s", outcome.Status, detail(outcome)))
		logger.Info("replica set initiation rejected", "status", outcome.Status, "output", outcome.Output)
		return
	}
	report.Result = ResultSuccess
	logger.Info("replica set initiated")
}

func (c *Controller) addMembers(ctx context.Context, report *Report, primary cluster.NodeIdentity, missing []string) {
	logger := logging.FromContext(ctx).WithValues("instance", primary.InstanceID)

	for _, addr := range missing {
		script := AddScript(addr, c.opts.MemberPort, c.opts.NewMemberPriority, c.opts.NewMemberVotes)
		logger.Info("adding member", "address", addr)

		attempt := MemberAttempt{Address: addr}
		outcome, err := c.runOne(ctx, primary.InstanceID, ShellCommand(script))
		switch {
		case err != nil:
			attempt.Status = executor.StatusFailed
			attempt.Detail = err.Error()
			logger.Error(err, "failed to add member", "address", addr)
		case !outcome.Succeeded(executor.SuccessMarker):
			attempt.Status = outcome.Status
			attempt.Detail = detail(outcome)
			logger.Info("member add rejected", "address", addr, "status", outcome.Status, "output", outcome.Output)
		default:
			attempt.Status = outcome.Status
			attempt.Succeeded = true
			logger.Info("member added", "address", addr)
		}
		report.Attempts = append(report.Attempts, attempt)
	}
	report.Result = ResultSuccess
}

func (c *Controller) runOne(ctx context.Context, target, command string) (executor.Outcome, error) {
	outcomes, err := c.runner.Run(ctx, []string{target}, command, c.opts.CommandTimeout)
	if err != nil {
		return executor.Outcome{}, err
	}
	outcome, ok := outcomes[target]
	if !ok {
		return executor.Outcome{}, fmt.Errorf("no outcome for %s", target)
	}
	return outcome, nil
}

func detail(o executor.Outcome) string {
	if o.Detail != "" {
		return o.Detail
	}
	return o.Output
}
