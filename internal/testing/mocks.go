package testing

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/imamik/rsjoin/internal/provisioner"
)

// MockLifecycle is a mock implementation of provisioner.Lifecycle.
type MockLifecycle struct {
	mock.Mock
}

// Complete records the lifecycle action.
func (m *MockLifecycle) Complete(ctx context.Context, action provisioner.LifecycleAction) error {
	args := m.Called(ctx, action)
	return args.Error(0)
}

// MockAutomation is a mock implementation of provisioner.Automation.
type MockAutomation struct {
	mock.Mock
}

// Start starts a mock automation execution.
func (m *MockAutomation) Start(ctx context.Context, document string, params map[string][]string) (string, error) {
	args := m.Called(ctx, document, params)
	return args.String(0), args.Error(1)
}

// Status returns the mock execution status.
func (m *MockAutomation) Status(ctx context.Context, executionID string) (provisioner.AutomationStatus, error) {
	args := m.Called(ctx, executionID)
	return args.Get(0).(provisioner.AutomationStatus), args.Error(1)
}

// MockVolumes is a mock implementation of provisioner.Volumes.
type MockVolumes struct {
	mock.Mock
}

// Snapshots lists mock snapshots.
func (m *MockVolumes) Snapshots(ctx context.Context, tags map[string]string) ([]provisioner.Snapshot, error) {
	args := m.Called(ctx, tags)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provisioner.Snapshot), args.Error(1)
}

// InstanceZone returns the mock availability zone.
func (m *MockVolumes) InstanceZone(ctx context.Context, instanceID string) (string, error) {
	args := m.Called(ctx, instanceID)
	return args.String(0), args.Error(1)
}

// CreateVolume creates a mock volume.
func (m *MockVolumes) CreateVolume(ctx context.Context, req provisioner.VolumeRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}
