package handlers

import (
	"context"
	"time"

	lambdaevents "github.com/aws/aws-lambda-go/events"

	"github.com/imamik/rsjoin/internal/config"
	"github.com/imamik/rsjoin/internal/events"
	"github.com/imamik/rsjoin/internal/gate"
	"github.com/imamik/rsjoin/internal/logging"
)

// Admitter is the subset of *gate.Gate the handler calls.
type Admitter interface {
	Admit(ctx context.Context, trigger gate.Trigger, budget gate.Budget) (gate.Decision, error)
}

// GateHandler handles node-ready messages delivered over SQS.
type GateHandler struct {
	Gate Admitter
	// Buffer is kept in reserve before the invocation deadline.
	Buffer time.Duration
}

// Handle admits each message in turn. Deferred and failed messages are
// reported as batch item failures so the queue redelivers them; malformed
// messages are dropped.
func (h *GateHandler) Handle(ctx context.Context, event lambdaevents.SQSEvent) (lambdaevents.SQSEventResponse, error) {
	logger := logging.FromContext(ctx)

	budget := gate.Budget{Buffer: h.Buffer}
	if deadline, ok := ctx.Deadline(); ok {
		budget.Deadline = deadline
	}

	var retry []string
	for _, msg := range event.Records {
		trigger, err := events.DecodeTrigger(msg)
		if err != nil {
			logger.Error(err, "dropping malformed node-ready message", "message", msg.MessageId)
			continue
		}

		// deferrals and errors are logged by the gate
		if _, err := h.Gate.Admit(ctx, trigger, budget); err != nil {
			retry = append(retry, msg.MessageId)
		}
	}
	return events.BatchFailures(retry...), nil
}

// Gate runs the admission gate lambda.
func Gate(ctx context.Context, configPath string) error {
	ctx, rt, err := setup(ctx, configPath, config.ComponentGate)
	if err != nil {
		return err
	}
	store, err := newRegistry(rt)
	if err != nil {
		return err
	}
	oracle, err := newOracle(rt)
	if err != nil {
		return err
	}
	sink, err := newJournal(ctx, rt)
	if err != nil {
		return err
	}

	g := gate.New(oracle, store, newController(rt),
		gate.WithPollInterval(rt.Config.Timeouts.GatePollInterval),
		gate.WithJournal(sink),
		gate.WithReleaseTimeout(rt.Config.Timeouts.ReleaseTimeout),
	)
	h := &GateHandler{Gate: g, Buffer: rt.Config.Timeouts.GateBuffer}
	startLambda(withLoggerResponse(rt, h.Handle))
	return nil
}
