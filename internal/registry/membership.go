package registry

import (
	"context"
	"sync"

	"github.com/imamik/rsjoin/internal/cluster"
	"github.com/imamik/rsjoin/internal/util/async"
	"github.com/imamik/rsjoin/internal/util/naming"
)

// LoadMembership reads the registered instances and the pre-allocated DNS
// names for id and joins them by slot.
//
// Only slots with a registered instance are members. A registered instance
// without a DNS name is a *cluster.ConfigError. A DNS name without an instance
// belongs to a slot that has not finished provisioning and is skipped.
func LoadMembership(ctx context.Context, store Store, id cluster.Identity) (cluster.Membership, error) {
	var (
		mu        sync.Mutex
		instances map[string]string
		dnsNames  map[string]string
	)

	tasks := []async.Task{
		{
			Name: "instance ids",
			Func: func(ctx context.Context) error {
				entries, err := store.List(ctx, naming.Prefix(id, naming.CategoryInstanceID))
				if err != nil {
					return cluster.Transport("registry list instanceid", err)
				}
				mu.Lock()
				instances = Slots(entries)
				mu.Unlock()
				return nil
			},
		},
		{
			Name: "dns names",
			Func: func(ctx context.Context) error {
				entries, err := store.List(ctx, naming.Prefix(id, naming.CategoryDNS))
				if err != nil {
					return cluster.Transport("registry list dns", err)
				}
				mu.Lock()
				dnsNames = Slots(entries)
				mu.Unlock()
				return nil
			},
		},
	}
	if err := async.RunParallel(ctx, tasks); err != nil {
		return cluster.Membership{}, err
	}

	members := cluster.Membership{Identity: id, Nodes: make([]cluster.NodeIdentity, 0, len(instances))}
	for slot, instanceID := range instances {
		addr, ok := dnsNames[slot]
		if !ok || addr == "" {
			return cluster.Membership{}, &cluster.ConfigError{
				Field:  naming.DNS(id, slot),
				Reason: "instance " + instanceID + " is registered but its slot has no DNS name",
			}
		}
		members.Nodes = append(members.Nodes, cluster.NodeIdentity{Slot: slot, InstanceID: instanceID, Address: addr})
	}
	cluster.SortBySlot(members.Nodes)
	return members, nil
}
