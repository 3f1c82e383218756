package provisioner

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/imamik/rsjoin/internal/cluster"
	"github.com/imamik/rsjoin/internal/executor"
	"github.com/imamik/rsjoin/internal/logging"
	"github.com/imamik/rsjoin/internal/metrics"
	"github.com/imamik/rsjoin/internal/registry"
	"github.com/imamik/rsjoin/internal/util/naming"
)

// DefaultReleaseTimeout is reserved before the invocation deadline for
// completing the lifecycle action.
const DefaultReleaseTimeout = 5 * time.Second

var tracer = otel.Tracer("github.com/imamik/rsjoin/internal/provisioner")

// Options configures bootstrap and volume creation.
type Options struct {
	AutomationDocument string
	QueueURL           string
	VolumeType         string
	VolumeIOPS         int32
	Encrypted          bool
	Policy             executor.Policy
	// ReleaseTimeout is cut from the invocation deadline for bootstrap and
	// bounds the lifecycle completion that follows it.
	ReleaseTimeout time.Duration
}

// Provisioner handles lifecycle events for new nodes.
type Provisioner struct {
	registry   registry.Store
	automation Automation
	volumes    Volumes
	lifecycle  Lifecycle
	opts       Options
}

// New returns a Provisioner.
func New(store registry.Store, automation Automation, volumes Volumes, lifecycle Lifecycle, opts Options) *Provisioner {
	if opts.VolumeType == "" {
		opts.VolumeType = "io1"
	}
	if opts.ReleaseTimeout <= 0 {
		opts.ReleaseTimeout = DefaultReleaseTimeout
	}
	return &Provisioner{
		registry:   store,
		automation: automation,
		volumes:    volumes,
		lifecycle:  lifecycle,
		opts:       opts,
	}
}

// Provision bootstraps the node in ev and completes its lifecycle action.
// The returned error is the classified cause of an ABANDON; it is nil when
// the action was completed with CONTINUE.
func (p *Provisioner) Provision(ctx context.Context, ev LifecycleEvent) error {
	id := ev.Metadata.Identity()
	ctx, logger := logging.WithCluster(ctx, id)
	logger = logger.WithValues("slot", ev.Metadata.Slot, "instance", ev.InstanceID)
	ctx = logging.IntoContext(ctx, logger)

	ctx, span := tracer.Start(ctx, "provisioner.Provision")
	defer span.End()
	span.SetAttributes(
		attribute.String("rsjoin.cluster", id.WorkflowID()),
		attribute.String("rsjoin.slot", ev.Metadata.Slot),
		attribute.String("rsjoin.instance", ev.InstanceID),
	)

	err := p.bootstrapWithin(ctx, ev)

	result := ResultContinue
	if err != nil {
		result = ResultAbandon
		span.RecordError(err)
		span.SetStatus(codes.Error, "provisioning failed")
		logger.Error(err, "failed to provision node")
	}
	metrics.RecordProvision(id.Role, string(result))

	completeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.ReleaseTimeout)
	defer cancel()
	if cerr := p.complete(completeCtx, ev, result); cerr != nil {
		logger.Error(cerr, "failed to complete lifecycle action", "result", result)
		if err == nil {
			err = cerr
		}
	}
	return err
}

// bootstrapWithin runs bootstrap with the release timeout held back from
// ctx's deadline, so the lifecycle action can still be completed after it.
func (p *Provisioner) bootstrapWithin(ctx context.Context, ev LifecycleEvent) error {
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline.Add(-p.opts.ReleaseTimeout))
		defer cancel()
	}
	return p.bootstrap(ctx, ev)
}

func (p *Provisioner) bootstrap(ctx context.Context, ev LifecycleEvent) error {
	id := ev.Metadata.Identity()
	if err := id.Validate(); err != nil {
		return err
	}
	if ev.Metadata.Slot == "" || ev.InstanceID == "" {
		return &cluster.ConfigError{Field: "lifecycle event", Reason: "missing slot or instance id"}
	}
	logger := logging.FromContext(ctx)

	eni, err := registry.Require(ctx, p.registry, naming.ENI(id, ev.Metadata.Slot))
	if err != nil {
		return err
	}
	logger.Info("resolved network interface", "eni", eni)

	dataVolume, err := p.resolveDataVolume(ctx, ev)
	if err != nil {
		return err
	}

	logsVolume, err := registry.Require(ctx, p.registry, naming.LogsVolume(id, ev.Metadata.Slot))
	if err != nil {
		return err
	}
	logger.Info("resolved volumes", "data", dataVolume, "logs", logsVolume)

	params := map[string][]string{
		"EniId":        {eni},
		"Project":      {id.Project},
		"Role":         {id.Role},
		"Environment":  {id.Environment},
		"ID":           {ev.Metadata.Slot},
		"VolumeIdLogs": {logsVolume},
		"VolumeIdData": {dataVolume},
		"InstanceId":   {ev.InstanceID},
		"QueueUrl":     {p.opts.QueueURL},
	}
	if err := p.runAutomation(ctx, params); err != nil {
		return err
	}

	key := naming.InstanceID(id, ev.Metadata.Slot)
	if err := p.registry.Put(ctx, key, ev.InstanceID, true); err != nil {
		return cluster.Transport("registry put "+key, err)
	}
	logger.Info("registered instance")
	return nil
}

func (p *Provisioner) runAutomation(ctx context.Context, params map[string][]string) error {
	logger := logging.FromContext(ctx)

	executionID, err := p.automation.Start(ctx, p.opts.AutomationDocument, params)
	if err != nil {
		return cluster.Transport("start automation", err)
	}
	logger = logger.WithValues("execution", executionID)
	logger.Info("started bootstrap automation", "document", p.opts.AutomationDocument)

	var last AutomationStatus
	err = p.opts.Policy.Poller().Until(ctx, func(ctx context.Context) (bool, error) {
		status, err := p.automation.Status(ctx, executionID)
		if err != nil {
			return false, cluster.Transport("get automation execution", err)
		}
		last = status
		logger.V(1).Info("polled automation", "state", status.State)
		return status.State.Terminal(), nil
	})
	if err != nil {
		return fmt.Errorf("failed waiting for automation %s: %w", executionID, err)
	}

	if last.State != AutomationSuccess {
		return fmt.Errorf("automation %s ended %s: %s", executionID, last.State, last.Failure)
	}
	logger.Info("bootstrap automation succeeded")
	return nil
}

func (p *Provisioner) complete(ctx context.Context, ev LifecycleEvent, result LifecycleResult) error {
	if !ev.Completes() {
		logging.FromContext(ctx).Info("skipping lifecycle completion", "result", result)
		return nil
	}
	err := p.lifecycle.Complete(ctx, LifecycleAction{
		HookName:   ev.HookName,
		GroupName:  ev.GroupName,
		Token:      ev.Token,
		InstanceID: ev.InstanceID,
		Result:     result,
	})
	if err != nil {
		return cluster.Transport("complete lifecycle action", err)
	}
	return nil
}
