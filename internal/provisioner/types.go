package provisioner

import (
	"context"
	"time"

	"github.com/imamik/rsjoin/internal/cluster"
)

// TestToken is the lifecycle token carried by synthetic test notifications.
// No lifecycle action is completed for it.
const TestToken = "test"

// NodeMetadata is the notification metadata attached to the lifecycle hook.
type NodeMetadata struct {
	Project     string `json:"project"`
	Environment string `json:"environment"`
	Role        string `json:"role"`
	Slot        string `json:"id"`
}

// Identity returns the cluster the node belongs to.
func (m NodeMetadata) Identity() cluster.Identity {
	return cluster.Identity{Project: m.Project, Environment: m.Environment, Role: m.Role}
}

// LifecycleEvent is an instance launch awaiting completion.
type LifecycleEvent struct {
	InstanceID string
	HookName   string
	GroupName  string
	Token      string
	Metadata   NodeMetadata
}

// Completes reports whether the event expects a lifecycle completion.
func (e LifecycleEvent) Completes() bool {
	return e.Token != "" && e.Token != TestToken
}

// LifecycleResult is the verdict sent to the fleet controller.
type LifecycleResult string

const (
	ResultContinue LifecycleResult = "CONTINUE"
	ResultAbandon  LifecycleResult = "ABANDON"
)

// LifecycleAction completes one lifecycle hook.
type LifecycleAction struct {
	HookName   string
	GroupName  string
	Token      string
	InstanceID string
	Result     LifecycleResult
}

// Lifecycle signals lifecycle hook completion to the fleet controller.
type Lifecycle interface {
	Complete(ctx context.Context, action LifecycleAction) error
}

// AutomationState is the state of a bootstrap automation execution.
type AutomationState string

const (
	AutomationPending    AutomationState = "Pending"
	AutomationInProgress AutomationState = "InProgress"
	AutomationWaiting    AutomationState = "Waiting"
	AutomationSuccess    AutomationState = "Success"
	AutomationFailed     AutomationState = "Failed"
	AutomationTimedOut   AutomationState = "TimedOut"
	AutomationCancelling AutomationState = "Cancelling"
	AutomationCancelled  AutomationState = "Cancelled"
)

// Terminal reports whether the execution has stopped.
func (s AutomationState) Terminal() bool {
	switch s {
	case AutomationSuccess, AutomationFailed, AutomationTimedOut, AutomationCancelled:
		return true
	default:
		return false
	}
}

// AutomationStatus is one poll of an automation execution.
type AutomationStatus struct {
	State   AutomationState
	Failure string
}

// Automation starts and tracks bootstrap automation executions.
type Automation interface {
	Start(ctx context.Context, document string, params map[string][]string) (string, error)
	Status(ctx context.Context, executionID string) (AutomationStatus, error)
}

// Snapshot is a point-in-time copy of a data volume.
type Snapshot struct {
	ID        string
	StartTime time.Time
}

// VolumeRequest describes a data volume restored from a snapshot.
type VolumeRequest struct {
	SnapshotID string
	Zone       string
	VolumeType string
	IOPS       int32
	Encrypted  bool
	Tags       map[string]string
}

// Volumes finds snapshots and creates volumes.
type Volumes interface {
	// Snapshots lists snapshots carrying every tag in tags.
	Snapshots(ctx context.Context, tags map[string]string) ([]Snapshot, error)
	InstanceZone(ctx context.Context, instanceID string) (string, error)
	CreateVolume(ctx context.Context, req VolumeRequest) (string, error)
}
