package aws

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/imamik/rsjoin/internal/executor"
)

// CommandAPI is the subset of the SSM client used to run commands.
type CommandAPI interface {
	SendCommand(ctx context.Context, params *ssm.SendCommandInput, optFns ...func(*ssm.Options)) (*ssm.SendCommandOutput, error)
	GetCommandInvocation(ctx context.Context, params *ssm.GetCommandInvocationInput, optFns ...func(*ssm.Options)) (*ssm.GetCommandInvocationOutput, error)
}

// CommandDispatcher implements executor.Dispatcher with SSM Run Command.
type CommandDispatcher struct {
	api      CommandAPI
	document string
}

// NewCommandDispatcher returns a dispatcher running shell commands through document.
func NewCommandDispatcher(api CommandAPI, document string) *CommandDispatcher {
	if document == "" {
		document = "AWS-RunShellScript"
	}
	return &CommandDispatcher{api: api, document: document}
}

// Submit sends command to the target instances.
func (d *CommandDispatcher) Submit(ctx context.Context, targets []string, command string, timeout time.Duration) (string, error) {
	seconds := int32(math.Ceil(timeout.Seconds()))
	if seconds < 30 {
		// minimum accepted by the service
		seconds = 30
	}
	out, err := d.api.SendCommand(ctx, &ssm.SendCommandInput{
		DocumentName:   aws.String(d.document),
		InstanceIds:    targets,
		TimeoutSeconds: aws.Int32(seconds),
		Parameters: map[string][]string{
			"commands": {command},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to send command: %w", err)
	}
	if out.Command == nil || out.Command.CommandId == nil {
		return "", fmt.Errorf("send command returned no command id")
	}
	return *out.Command.CommandId, nil
}

// Poll reads the invocation of commandID on target. An invocation that is
// not visible yet is reported as Pending.
func (d *CommandDispatcher) Poll(ctx context.Context, commandID, target string) (executor.Invocation, error) {
	out, err := d.api.GetCommandInvocation(ctx, &ssm.GetCommandInvocationInput{
		CommandId:  aws.String(commandID),
		InstanceId: aws.String(target),
	})
	if err != nil {
		if IsInvocationPending(err) {
			return executor.Invocation{Status: executor.StatusPending}, nil
		}
		return executor.Invocation{}, fmt.Errorf("failed to get command invocation: %w", err)
	}
	return executor.Invocation{
		Status: invocationStatus(out.Status),
		Output: aws.ToString(out.StandardOutputContent),
		Detail: aws.ToString(out.StatusDetails),
	}, nil
}

func invocationStatus(s ssmtypes.CommandInvocationStatus) executor.Status {
	switch s {
	case ssmtypes.CommandInvocationStatusSuccess:
		return executor.StatusSuccess
	case ssmtypes.CommandInvocationStatusFailed:
		return executor.StatusFailed
	case ssmtypes.CommandInvocationStatusTimedOut:
		return executor.StatusTimedOut
	case ssmtypes.CommandInvocationStatusCancelled:
		return executor.StatusCancelled
	case ssmtypes.CommandInvocationStatusInProgress, ssmtypes.CommandInvocationStatusCancelling:
		return executor.StatusInProgress
	case ssmtypes.CommandInvocationStatusDelayed:
		return executor.StatusDelayed
	default:
		return executor.StatusPending
	}
}
