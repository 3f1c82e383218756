package handlers

import (
	"context"
	"errors"

	lambdaevents "github.com/aws/aws-lambda-go/events"

	"github.com/imamik/rsjoin/internal/config"
	"github.com/imamik/rsjoin/internal/events"
	"github.com/imamik/rsjoin/internal/logging"
	awsInternal "github.com/imamik/rsjoin/internal/platform/aws"
	"github.com/imamik/rsjoin/internal/provisioner"
)

// Provisioner is the subset of *provisioner.Provisioner the handler calls.
type Provisioner interface {
	Provision(ctx context.Context, ev provisioner.LifecycleEvent) error
}

// ProvisionHandler handles lifecycle notifications delivered over SNS.
type ProvisionHandler struct {
	Provisioner Provisioner
}

// Handle provisions every instance named in event. Failures are logged and
// never returned: the provisioner has already abandoned the instance, and a
// redelivered notification would carry a spent lifecycle token.
func (h *ProvisionHandler) Handle(ctx context.Context, event lambdaevents.SNSEvent) error {
	logger := logging.FromContext(ctx)

	lifecycleEvents, decodeErrs := events.LifecycleFromSNS(event)
	for _, err := range decodeErrs {
		if errors.Is(err, events.ErrTestNotification) {
			logger.Info("ignoring lifecycle test notification")
			continue
		}
		logger.Error(err, "failed to decode lifecycle notification")
	}

	for _, ev := range lifecycleEvents {
		if err := h.Provisioner.Provision(ctx, ev); err != nil {
			logger.Error(err, "node provisioning failed", "instance", ev.InstanceID, "slot", ev.Metadata.Slot)
			continue
		}
		logger.Info("node provisioned", "instance", ev.InstanceID, "slot", ev.Metadata.Slot)
	}
	return nil
}

// Provision runs the provisioner lambda.
func Provision(ctx context.Context, configPath string) error {
	ctx, rt, err := setup(ctx, configPath, config.ComponentProvisioner)
	if err != nil {
		return err
	}
	store, err := newRegistry(rt)
	if err != nil {
		return err
	}

	cfg := rt.Config
	p := provisioner.New(
		store,
		awsInternal.NewAutomation(rt.Clients.SSM),
		awsInternal.NewVolumes(rt.Clients.EC2),
		awsInternal.NewLifecycle(rt.Clients.AutoScaling),
		provisioner.Options{
			AutomationDocument: cfg.Provisioner.AutomationDocument,
			QueueURL:           cfg.Provisioner.QueueURL,
			VolumeType:         cfg.Provisioner.VolumeType,
			VolumeIOPS:         cfg.Provisioner.VolumeIOPS,
			Encrypted:          cfg.Provisioner.Encrypted(),
			Policy:             newPolicy(rt, false),
			ReleaseTimeout:     cfg.Timeouts.ReleaseTimeout,
		},
	)

	h := &ProvisionHandler{Provisioner: p}
	startLambda(withLogger(rt, h.Handle))
	return nil
}
