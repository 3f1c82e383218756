package testing

import (
	"strconv"

	"github.com/imamik/rsjoin/internal/cluster"
	"github.com/imamik/rsjoin/internal/util/naming"
)

// ClusterBuilder provides a fluent interface for constructing a cluster and
// its registry entries. Each method returns a new builder for chaining.
type ClusterBuilder struct {
	id    cluster.Identity
	nodes []cluster.NodeIdentity
	extra map[string]string
}

// NewClusterBuilder creates a builder for the given identity with no nodes.
func NewClusterBuilder(project, environment, role string) *ClusterBuilder {
	return &ClusterBuilder{
		id:    cluster.Identity{Project: project, Environment: environment, Role: role},
		extra: map[string]string{},
	}
}

// WithNode adds a registered node.
func (b *ClusterBuilder) WithNode(slot, instanceID, address string) *ClusterBuilder {
	nb := b.clone()
	nb.nodes = append(nb.nodes, cluster.NodeIdentity{Slot: slot, InstanceID: instanceID, Address: address})
	return nb
}

// WithNodes adds n nodes in slots 0..n-1 named i-<k+1> and dns<k+1>.
func (b *ClusterBuilder) WithNodes(n int) *ClusterBuilder {
	nb := b
	for k := 0; k < n; k++ {
		nb = nb.WithNode(strconv.Itoa(k), "i-"+strconv.Itoa(k+1), "dns"+strconv.Itoa(k+1))
	}
	return nb
}

// WithSlotResources pre-allocates the ENI and volumes for slot.
func (b *ClusterBuilder) WithSlotResources(slot, eni, dataVol, logsVol string) *ClusterBuilder {
	nb := b.clone()
	if eni != "" {
		nb.extra[naming.ENI(b.id, slot)] = eni
	}
	if dataVol != "" {
		nb.extra[naming.DataVolume(b.id, slot)] = dataVol
	}
	if logsVol != "" {
		nb.extra[naming.LogsVolume(b.id, slot)] = logsVol
	}
	return nb
}

// WithDNS pre-allocates a DNS name for a slot without registering an instance.
func (b *ClusterBuilder) WithDNS(slot, address string) *ClusterBuilder {
	nb := b.clone()
	nb.extra[naming.DNS(b.id, slot)] = address
	return nb
}

// Identity returns the cluster identity.
func (b *ClusterBuilder) Identity() cluster.Identity {
	return b.id
}

// Membership returns the nodes as a membership, in the order added.
func (b *ClusterBuilder) Membership() cluster.Membership {
	return cluster.Membership{Identity: b.id, Nodes: append([]cluster.NodeIdentity(nil), b.nodes...)}
}

// Seed writes every node and resource into reg and returns reg.
func (b *ClusterBuilder) Seed(reg *MemoryRegistry) *MemoryRegistry {
	for _, n := range b.nodes {
		reg.Set(naming.InstanceID(b.id, n.Slot), n.InstanceID)
		reg.Set(naming.DNS(b.id, n.Slot), n.Address)
	}
	for k, v := range b.extra {
		reg.Set(k, v)
	}
	return reg
}

func (b *ClusterBuilder) clone() *ClusterBuilder {
	extra := make(map[string]string, len(b.extra))
	for k, v := range b.extra {
		extra[k] = v
	}
	return &ClusterBuilder{
		id:    b.id,
		nodes: append([]cluster.NodeIdentity(nil), b.nodes...),
		extra: extra,
	}
}
