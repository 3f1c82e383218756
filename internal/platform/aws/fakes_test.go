package aws

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/smithy-go"
)

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code}
}

type fakeCommands struct {
	mu          sync.Mutex
	sent        []*ssm.SendCommandInput
	sendErr     error
	invocations map[string]*ssm.GetCommandInvocationOutput
	invokeErr   error
}

func (f *fakeCommands) SendCommand(_ context.Context, in *ssm.SendCommandInput, _ ...func(*ssm.Options)) (*ssm.SendCommandOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, in)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	id := "cmd-1"
	return &ssm.SendCommandOutput{Command: &ssmtypes.Command{CommandId: &id}}, nil
}

func (f *fakeCommands) GetCommandInvocation(_ context.Context, in *ssm.GetCommandInvocationInput, _ ...func(*ssm.Options)) (*ssm.GetCommandInvocationOutput, error) {
	if f.invokeErr != nil {
		return nil, f.invokeErr
	}
	out, ok := f.invocations[*in.InstanceId]
	if !ok {
		return nil, apiError("InvocationDoesNotExist")
	}
	return out, nil
}

type fakeAutomation struct {
	started  *ssm.StartAutomationExecutionInput
	startErr error
	status   *ssm.GetAutomationExecutionOutput
}

func (f *fakeAutomation) StartAutomationExecution(_ context.Context, in *ssm.StartAutomationExecutionInput, _ ...func(*ssm.Options)) (*ssm.StartAutomationExecutionOutput, error) {
	f.started = in
	if f.startErr != nil {
		return nil, f.startErr
	}
	id := "auto-1"
	return &ssm.StartAutomationExecutionOutput{AutomationExecutionId: &id}, nil
}

func (f *fakeAutomation) GetAutomationExecution(_ context.Context, _ *ssm.GetAutomationExecutionInput, _ ...func(*ssm.Options)) (*ssm.GetAutomationExecutionOutput, error) {
	return f.status, nil
}

type fakeLifecycle struct {
	got *autoscaling.CompleteLifecycleActionInput
	err error
}

func (f *fakeLifecycle) CompleteLifecycleAction(_ context.Context, in *autoscaling.CompleteLifecycleActionInput, _ ...func(*autoscaling.Options)) (*autoscaling.CompleteLifecycleActionOutput, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return &autoscaling.CompleteLifecycleActionOutput{}, nil
}
