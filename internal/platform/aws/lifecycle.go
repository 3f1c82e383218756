package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"

	"github.com/imamik/rsjoin/internal/provisioner"
)

// LifecycleAPI is the subset of the Auto Scaling client used by Lifecycle.
type LifecycleAPI interface {
	CompleteLifecycleAction(ctx context.Context, params *autoscaling.CompleteLifecycleActionInput, optFns ...func(*autoscaling.Options)) (*autoscaling.CompleteLifecycleActionOutput, error)
}

// Lifecycle implements provisioner.Lifecycle on Auto Scaling.
type Lifecycle struct {
	api LifecycleAPI
}

// NewLifecycle returns a Lifecycle adapter.
func NewLifecycle(api LifecycleAPI) *Lifecycle {
	return &Lifecycle{api: api}
}

// Complete sends the lifecycle verdict for one launching instance.
func (l *Lifecycle) Complete(ctx context.Context, action provisioner.LifecycleAction) error {
	_, err := l.api.CompleteLifecycleAction(ctx, &autoscaling.CompleteLifecycleActionInput{
		AutoScalingGroupName:  aws.String(action.GroupName),
		LifecycleHookName:     aws.String(action.HookName),
		LifecycleActionToken:  aws.String(action.Token),
		InstanceId:            aws.String(action.InstanceID),
		LifecycleActionResult: aws.String(string(action.Result)),
	})
	if err != nil {
		return fmt.Errorf("failed to complete lifecycle action for %s: %w", action.InstanceID, err)
	}
	return nil
}
