package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/imamik/rsjoin/internal/cluster"
	"github.com/imamik/rsjoin/internal/convergence"
	"github.com/imamik/rsjoin/internal/journal"
	"github.com/imamik/rsjoin/internal/logging"
	"github.com/imamik/rsjoin/internal/metrics"
	"github.com/imamik/rsjoin/internal/registry"
	"github.com/imamik/rsjoin/internal/util/retry"
)

const (
	// DefaultPollInterval is the wait between active-run checks.
	DefaultPollInterval = 5 * time.Second
	// DefaultReleaseTimeout bounds releasing and journaling a finished run.
	DefaultReleaseTimeout = 5 * time.Second
)

var tracer = otel.Tracer("github.com/imamik/rsjoin/internal/gate")

// Gate is the single-flight admission guard.
type Gate struct {
	oracle         Oracle
	store          registry.Store
	converger      Converger
	journal        journal.Sink
	clock          retry.Clock
	pollInterval   time.Duration
	releaseTimeout time.Duration
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock sets the clock used for waits and budget checks.
func WithClock(clock retry.Clock) Option {
	return func(g *Gate) {
		g.clock = clock
	}
}

// WithPollInterval sets the wait between active-run checks.
func WithPollInterval(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.pollInterval = d
		}
	}
}

// WithReleaseTimeout bounds the calls made after a run has finished. They
// run detached from the invocation context, so a run cut off at its
// deadline still releases its claim.
func WithReleaseTimeout(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.releaseTimeout = d
		}
	}
}

// WithJournal records every finished run to sink.
func WithJournal(sink journal.Sink) Option {
	return func(g *Gate) {
		if sink != nil {
			g.journal = sink
		}
	}
}

// New returns a Gate.
func New(oracle Oracle, store registry.Store, converger Converger, opts ...Option) *Gate {
	g := &Gate{
		oracle:         oracle,
		store:          store,
		converger:      converger,
		journal:        journal.Discard,
		clock:          retry.RealClock(),
		pollInterval:   DefaultPollInterval,
		releaseTimeout: DefaultReleaseTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Admit starts a convergence run for trigger, or defers it.
//
// A deferral returns Decision{Outcome: Deferred} together with an error
// wrapping cluster.ErrDeferred. Other errors mean the trigger could not be
// processed and should also be redelivered.
func (g *Gate) Admit(ctx context.Context, trigger Trigger, budget Budget) (Decision, error) {
	id := trigger.Identity
	ctx, logger := logging.WithCluster(ctx, id)
	ctx, span := tracer.Start(ctx, "gate.Admit")
	defer span.End()
	span.SetAttributes(attribute.String("rsjoin.cluster", id.WorkflowID()), attribute.String("rsjoin.slot", trigger.Slot))

	decision, err := g.admit(ctx, trigger, budget)

	switch {
	case cluster.IsDeferred(err):
		metrics.RecordGateDecision(id.WorkflowID(), string(Deferred))
		span.SetAttributes(attribute.String("rsjoin.decision", string(Deferred)))
		logger.Info("deferring trigger", "slot", trigger.Slot, "reason", err.Error())
	case err != nil:
		metrics.RecordGateDecision(id.WorkflowID(), "error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "admission failed")
		logger.Error(err, "failed to admit trigger", "slot", trigger.Slot)
	default:
		metrics.RecordGateDecision(id.WorkflowID(), string(Started))
		span.SetAttributes(attribute.String("rsjoin.decision", string(Started)))
	}
	return decision, err
}

func (g *Gate) admit(ctx context.Context, trigger Trigger, budget Budget) (Decision, error) {
	id := trigger.Identity
	if err := id.Validate(); err != nil {
		return Decision{}, err
	}
	workflowID := id.WorkflowID()

	if err := g.waitIdle(ctx, workflowID, budget); err != nil {
		if cluster.IsDeferred(err) {
			return Decision{Outcome: Deferred}, err
		}
		return Decision{}, err
	}

	runCtx := ctx
	if remaining, bounded := budget.Remaining(g.clock.Now()); bounded {
		if remaining <= 0 {
			return Decision{Outcome: Deferred}, fmt.Errorf("%s left, not enough to run: %w", remaining+budget.Buffer, cluster.ErrDeferred)
		}
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, remaining)
		defer cancel()
	}

	members, err := registry.LoadMembership(ctx, g.store, id)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to load membership: %w", err)
	}
	input := convergence.NewRunInput(members)

	handle, err := g.oracle.StartRun(ctx, workflowID, input)
	if errors.Is(err, ErrRunActive) {
		return Decision{Outcome: Deferred}, fmt.Errorf("lost start race: %w", cluster.ErrDeferred)
	}
	if err != nil {
		return Decision{}, cluster.Transport("start run", err)
	}

	logger := logging.FromContext(ctx).WithValues("run", handle.ID())
	runCtx = logging.IntoContext(runCtx, logger)
	logger.Info("starting convergence run", "members", len(members.Nodes))

	report := g.converger.Converge(runCtx, input)
	report.RunID = handle.ID()

	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(runCtx), g.releaseTimeout)
	defer cancel()
	if err := handle.Finish(releaseCtx, report); err != nil {
		logger.Error(err, "failed to release run")
	}
	if err := g.journal.Record(releaseCtx, report); err != nil {
		logger.Error(err, "failed to journal run")
	}
	logger.Info("convergence run finished", "action", report.Action, "result", report.Result)

	return Decision{Outcome: Started, RunID: handle.ID(), Report: &report}, nil
}

// waitIdle returns nil once no run is active for workflowID, or an error
// wrapping cluster.ErrDeferred when the budget does not allow another wait.
func (g *Gate) waitIdle(ctx context.Context, workflowID string, budget Budget) error {
	logger := logging.FromContext(ctx)
	for {
		active, err := g.oracle.ActiveRuns(ctx, workflowID)
		if err != nil {
			return cluster.Transport("list active runs", err)
		}
		if active == 0 {
			return nil
		}

		wait := g.pollInterval
		if remaining, bounded := budget.Remaining(g.clock.Now()); bounded {
			if remaining <= 0 {
				return fmt.Errorf("%d run(s) active with %s left: %w", active, remaining+budget.Buffer, cluster.ErrDeferred)
			}
			wait = min(wait, remaining)
		}

		logger.V(1).Info("run active, waiting", "active", active, "wait", wait)
		if err := retry.Sleep(ctx, g.clock, wait); err != nil {
			return fmt.Errorf("stopped waiting for active run: %w", cluster.ErrDeferred)
		}
	}
}
