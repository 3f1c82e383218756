package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	sfntypes "github.com/aws/aws-sdk-go-v2/service/sfn/types"
	"github.com/google/uuid"

	"github.com/imamik/rsjoin/internal/convergence"
	"github.com/imamik/rsjoin/internal/gate"
)

// Stop error codes recorded on finished executions.
const (
	StopSucceeded = "rsjoin.Succeeded"
	StopFailed    = "rsjoin.Failed"
	StopLostRace  = "rsjoin.LostRace"
)

const (
	maxExecutionName = 80
	maxStopCause     = 32768
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// StepFunctionsAPI is the subset of the Step Functions client used by Oracle.
type StepFunctionsAPI interface {
	StartExecution(ctx context.Context, params *sfn.StartExecutionInput, optFns ...func(*sfn.Options)) (*sfn.StartExecutionOutput, error)
	StopExecution(ctx context.Context, params *sfn.StopExecutionInput, optFns ...func(*sfn.Options)) (*sfn.StopExecutionOutput, error)
	ListExecutions(ctx context.Context, params *sfn.ListExecutionsInput, optFns ...func(*sfn.Options)) (*sfn.ListExecutionsOutput, error)
}

// Oracle implements gate.Oracle with a Step Functions state machine. A
// RUNNING execution whose name carries the workflow prefix is an active run;
// the execution is stopped when the run finishes.
type Oracle struct {
	api          StepFunctionsAPI
	stateMachine string
	newID        func() string
}

var _ gate.Oracle = (*Oracle)(nil)

// NewOracle returns an Oracle over the state machine stateMachineARN.
func NewOracle(api StepFunctionsAPI, stateMachineARN string) *Oracle {
	return &Oracle{
		api:          api,
		stateMachine: stateMachineARN,
		newID:        func() string { return uuid.NewString() },
	}
}

// ExecutionPrefix is the execution name prefix for workflowID.
func ExecutionPrefix(workflowID string) string {
	prefix := strings.Trim(unsafeNameChars.ReplaceAllString(workflowID, "-"), "-")
	if limit := maxExecutionName - len(uuid.Nil.String()) - 1; len(prefix) > limit {
		prefix = prefix[:limit]
	}
	return prefix + "-"
}

// ActiveRuns counts running executions for workflowID.
func (o *Oracle) ActiveRuns(ctx context.Context, workflowID string) (int, error) {
	running, err := o.running(ctx, ExecutionPrefix(workflowID))
	if err != nil {
		return 0, err
	}
	return len(running), nil
}

// StartRun starts an execution for workflowID. When two callers start at
// once, the execution that started first keeps the claim and the other is
// stopped and reported as gate.ErrRunActive.
func (o *Oracle) StartRun(ctx context.Context, workflowID string, input convergence.RunInput) (gate.RunHandle, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run input: %w", err)
	}

	prefix := ExecutionPrefix(workflowID)
	name := prefix + o.newID()
	out, err := o.api.StartExecution(ctx, &sfn.StartExecutionInput{
		StateMachineArn: aws.String(o.stateMachine),
		Name:            aws.String(name),
		Input:           aws.String(string(payload)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start execution %s: %w", name, err)
	}

	run := &execution{oracle: o, arn: aws.ToString(out.ExecutionArn), name: name}

	running, err := o.running(ctx, prefix)
	if err != nil {
		// the execution exists; keep the claim rather than orphan it
		return run, nil
	}
	if len(running) > 0 && aws.ToString(running[0].Name) != name {
		if stopErr := o.stop(ctx, run.arn, StopLostRace, "run "+aws.ToString(running[0].Name)+" is active"); stopErr != nil {
			return nil, errors.Join(gate.ErrRunActive, stopErr)
		}
		return nil, gate.ErrRunActive
	}
	return run, nil
}

// running lists RUNNING executions named with prefix, oldest first.
func (o *Oracle) running(ctx context.Context, prefix string) ([]sfntypes.ExecutionListItem, error) {
	var items []sfntypes.ExecutionListItem
	paginator := sfn.NewListExecutionsPaginator(o.api, &sfn.ListExecutionsInput{
		StateMachineArn: aws.String(o.stateMachine),
		StatusFilter:    sfntypes.ExecutionStatusRunning,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list executions: %w", err)
		}
		for _, item := range page.Executions {
			if strings.HasPrefix(aws.ToString(item.Name), prefix) {
				items = append(items, item)
			}
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := aws.ToTime(items[i].StartDate), aws.ToTime(items[j].StartDate)
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return aws.ToString(items[i].Name) < aws.ToString(items[j].Name)
	})
	return items, nil
}

func (o *Oracle) stop(ctx context.Context, arn, code, cause string) error {
	if len(cause) > maxStopCause {
		cause = cause[:maxStopCause]
	}
	_, err := o.api.StopExecution(ctx, &sfn.StopExecutionInput{
		ExecutionArn: aws.String(arn),
		Error:        aws.String(code),
		Cause:        aws.String(cause),
	})
	if err != nil && !IsExecutionNotFound(err) {
		return fmt.Errorf("failed to stop execution %s: %w", arn, err)
	}
	return nil
}

type execution struct {
	oracle *Oracle
	arn    string
	name   string

	mu       sync.Mutex
	finished bool
}

func (e *execution) ID() string {
	return e.name
}

// Finish stops the execution with the report as its cause.
func (e *execution) Finish(ctx context.Context, report convergence.Report) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished {
		return fmt.Errorf("execution %s already finished", e.name)
	}
	e.finished = true

	code := StopFailed
	if report.Succeeded() {
		code = StopSucceeded
	}
	cause, err := json.Marshal(stopCause{
		Action:   string(report.Action),
		Result:   string(report.Result),
		State:    string(report.State),
		Error:    report.Error,
		Duration: report.Duration().Round(time.Millisecond).String(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return e.oracle.stop(ctx, e.arn, code, string(cause))
}

type stopCause struct {
	Action   string `json:"action"`
	Result   string `json:"result"`
	State    string `json:"state"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}
