package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/imamik/rsjoin/internal/provisioner"
)

// AutomationAPI is the subset of the SSM client used for automations.
type AutomationAPI interface {
	StartAutomationExecution(ctx context.Context, params *ssm.StartAutomationExecutionInput, optFns ...func(*ssm.Options)) (*ssm.StartAutomationExecutionOutput, error)
	GetAutomationExecution(ctx context.Context, params *ssm.GetAutomationExecutionInput, optFns ...func(*ssm.Options)) (*ssm.GetAutomationExecutionOutput, error)
}

// Automation implements provisioner.Automation with SSM Automation.
type Automation struct {
	api AutomationAPI
}

// NewAutomation returns an Automation.
func NewAutomation(api AutomationAPI) *Automation {
	return &Automation{api: api}
}

// Start starts document with params.
func (a *Automation) Start(ctx context.Context, document string, params map[string][]string) (string, error) {
	out, err := a.api.StartAutomationExecution(ctx, &ssm.StartAutomationExecutionInput{
		DocumentName: aws.String(document),
		Parameters:   params,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start automation %s: %w", document, err)
	}
	return aws.ToString(out.AutomationExecutionId), nil
}

// Status returns the state of executionID.
func (a *Automation) Status(ctx context.Context, executionID string) (provisioner.AutomationStatus, error) {
	out, err := a.api.GetAutomationExecution(ctx, &ssm.GetAutomationExecutionInput{
		AutomationExecutionId: aws.String(executionID),
	})
	if err != nil {
		return provisioner.AutomationStatus{}, fmt.Errorf("failed to get automation %s: %w", executionID, err)
	}
	if out.AutomationExecution == nil {
		return provisioner.AutomationStatus{State: provisioner.AutomationPending}, nil
	}
	return provisioner.AutomationStatus{
		State:   provisioner.AutomationState(out.AutomationExecution.AutomationExecutionStatus),
		Failure: aws.ToString(out.AutomationExecution.FailureMessage),
	}, nil
}
