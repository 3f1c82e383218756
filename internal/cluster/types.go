package cluster

import (
	"fmt"
	"sort"
	"strconv"
)

// Identity names one replica set: a (project, environment, role) triple.
type Identity struct {
	Project     string `json:"project"`
	Environment string `json:"environment"`
	Role        string `json:"role"`
}

// ReplicaSetName returns the replica set _id used when the cluster is initialized.
func (i Identity) ReplicaSetName() string {
	return fmt.Sprintf("%s_%s_%s", i.Project, i.Environment, i.Role)
}

// WorkflowID returns the key under which at most one convergence run may be active.
func (i Identity) WorkflowID() string {
	return fmt.Sprintf("%s/%s/%s", i.Project, i.Environment, i.Role)
}

// Validate reports whether all three parts are set.
func (i Identity) Validate() error {
	if i.Project == "" || i.Environment == "" || i.Role == "" {
		return &ConfigError{Field: "identity", Reason: fmt.Sprintf("incomplete cluster identity %q", i.WorkflowID())}
	}
	return nil
}

func (i Identity) String() string {
	return i.WorkflowID()
}

// NodeIdentity is a provisioned node registered under its slot.
type NodeIdentity struct {
	Slot       string `json:"slot"`
	InstanceID string `json:"instanceId"`
	Address    string `json:"address"`
}

// Membership is the ordered set of nodes known to the registry for one cluster.
type Membership struct {
	Identity Identity       `json:"identity"`
	Nodes    []NodeIdentity `json:"nodes"`
}

// Representative returns the node that receives status and admin commands.
func (m Membership) Representative() (NodeIdentity, bool) {
	if len(m.Nodes) == 0 {
		return NodeIdentity{}, false
	}
	return m.Nodes[0], true
}

// Addresses returns member addresses in membership order.
func (m Membership) Addresses() []string {
	out := make([]string, 0, len(m.Nodes))
	for _, n := range m.Nodes {
		out = append(out, n.Address)
	}
	return out
}

// InstanceIDs returns member instance IDs in membership order.
func (m Membership) InstanceIDs() []string {
	out := make([]string, 0, len(m.Nodes))
	for _, n := range m.Nodes {
		out = append(out, n.InstanceID)
	}
	return out
}

// SortBySlot orders nodes by numeric slot, falling back to lexical order
// for slots that are not numbers.
func SortBySlot(nodes []NodeIdentity) {
	sort.SliceStable(nodes, func(a, b int) bool {
		na, errA := strconv.Atoi(nodes[a].Slot)
		nb, errB := strconv.Atoi(nodes[b].Slot)
		switch {
		case errA == nil && errB == nil:
			return na < nb
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return nodes[a].Slot < nodes[b].Slot
		}
	})
}
