package testing

import (
	"github.com/stretchr/testify/mock"

	"github.com/imamik/rsjoin/internal/provisioner"
)

// ProvisionFixture provides pre-configured collaborators for provisioner
// scenarios.
type ProvisionFixture struct {
	Registry   *MemoryRegistry
	Automation *MockAutomation
	Volumes    *MockVolumes
	Lifecycle  *MockLifecycle
	Clock      *FakeClock
}

// NewProvisionFixture creates a fixture with an empty registry and a clock at Epoch.
func NewProvisionFixture() *ProvisionFixture {
	return &ProvisionFixture{
		Registry:   NewMemoryRegistry(),
		Automation: &MockAutomation{},
		Volumes:    &MockVolumes{},
		Lifecycle:  &MockLifecycle{},
		Clock:      NewFakeClock(Epoch),
	}
}

// AutomationSucceeds starts document as execution "exec-1", which reports
// InProgress polls-1 times before Success.
// Returns the fixture for chaining.
func (f *ProvisionFixture) AutomationSucceeds(document string, polls int) *ProvisionFixture {
	f.Automation.On("Start", mock.Anything, document, mock.Anything).Return("exec-1", nil)
	if polls > 1 {
		f.Automation.On("Status", mock.Anything, "exec-1").
			Return(provisioner.AutomationStatus{State: provisioner.AutomationInProgress}, nil).Times(polls - 1)
	}
	f.Automation.On("Status", mock.Anything, "exec-1").
		Return(provisioner.AutomationStatus{State: provisioner.AutomationSuccess}, nil)
	return f
}

// AutomationEnds starts any document as "exec-1", which immediately ends in state.
func (f *ProvisionFixture) AutomationEnds(state provisioner.AutomationState, failure string) *ProvisionFixture {
	f.Automation.On("Start", mock.Anything, mock.Anything, mock.Anything).Return("exec-1", nil)
	f.Automation.On("Status", mock.Anything, "exec-1").
		Return(provisioner.AutomationStatus{State: state, Failure: failure}, nil)
	return f
}

// CompletesAll accepts every lifecycle completion.
func (f *ProvisionFixture) CompletesAll() *ProvisionFixture {
	f.Lifecycle.On("Complete", mock.Anything, mock.Anything).Return(nil)
	return f
}
