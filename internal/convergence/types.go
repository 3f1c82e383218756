package convergence

import (
	"fmt"
	"strconv"
	"time"

	"github.com/imamik/rsjoin/internal/cluster"
	"github.com/imamik/rsjoin/internal/executor"
	"github.com/imamik/rsjoin/internal/inspector"
)

// Action is the corrective step taken by a run.
type Action string

const (
	ActionInit Action = "init"
	ActionAdd  Action = "add"
	ActionNone Action = "none"
)

// Result is the terminal outcome of a run.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// NodeList is the column-wise node payload: ID[k] and DNS[k] describe the
// same member.
type NodeList struct {
	ID  []string `json:"id"`
	DNS []string `json:"dns"`
}

// RunInput is the payload a convergence run starts from.
type RunInput struct {
	Nodes       NodeList `json:"nodes"`
	Project     string   `json:"project"`
	Environment string   `json:"environment"`
	Role        string   `json:"role"`
}

// NewRunInput flattens a membership into a run payload.
func NewRunInput(m cluster.Membership) RunInput {
	return RunInput{
		Nodes:       NodeList{ID: m.InstanceIDs(), DNS: m.Addresses()},
		Project:     m.Identity.Project,
		Environment: m.Identity.Environment,
		Role:        m.Identity.Role,
	}
}

// Identity returns the cluster the input targets.
func (in RunInput) Identity() cluster.Identity {
	return cluster.Identity{Project: in.Project, Environment: in.Environment, Role: in.Role}
}

// Membership rebuilds the ordered membership. Slots are list positions.
func (in RunInput) Membership() (cluster.Membership, error) {
	if len(in.Nodes.ID) != len(in.Nodes.DNS) {
		return cluster.Membership{}, &cluster.ConfigError{
			Field:  "nodes",
			Reason: fmt.Sprintf("%d instance ids but %d dns names", len(in.Nodes.ID), len(in.Nodes.DNS)),
		}
	}
	m := cluster.Membership{Identity: in.Identity(), Nodes: make([]cluster.NodeIdentity, 0, len(in.Nodes.ID))}
	for k := range in.Nodes.ID {
		m.Nodes = append(m.Nodes, cluster.NodeIdentity{Slot: strconv.Itoa(k), InstanceID: in.Nodes.ID[k], Address: in.Nodes.DNS[k]})
	}
	return m, nil
}

// MemberAttempt records one rs.add issued during a run.
type MemberAttempt struct {
	Address   string          `json:"address"`
	Status    executor.Status `json:"status"`
	Succeeded bool            `json:"succeeded"`
	Detail    string          `json:"detail,omitempty"`
}

// Report is the terminal record of one run.
type Report struct {
	RunID      string           `json:"runId,omitempty"`
	Identity   cluster.Identity `json:"identity"`
	State      inspector.State  `json:"state"`
	Action     Action           `json:"action"`
	Result     Result           `json:"result"`
	Attempts   []MemberAttempt  `json:"attempts,omitempty"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt"`

	Err error `json:"-"`
}

// Succeeded reports whether the run reached ResultSuccess.
func (r Report) Succeeded() bool {
	return r.Result == ResultSuccess
}

// Duration is the wall time of the run.
func (r Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *Report) fail(err error) {
	r.Result = ResultFailure
	r.Err = err
	if err != nil {
		r.Error = err.Error()
	}
}
