package provisioner

import (
	"context"
	"fmt"
	"sort"

	"github.com/imamik/rsjoin/internal/cluster"
	"github.com/imamik/rsjoin/internal/logging"
	"github.com/imamik/rsjoin/internal/metrics"
	"github.com/imamik/rsjoin/internal/util/labels"
	"github.com/imamik/rsjoin/internal/util/naming"
)

// LatestSnapshot returns the snapshot with the newest start time.
func LatestSnapshot(snaps []Snapshot) (Snapshot, bool) {
	if len(snaps) == 0 {
		return Snapshot{}, false
	}
	sorted := append([]Snapshot(nil), snaps...)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].StartTime.After(sorted[b].StartTime)
	})
	return sorted[0], true
}

// resolveDataVolume returns the registered data volume for the slot, creating
// and registering one from the latest seed snapshot when none is registered.
func (p *Provisioner) resolveDataVolume(ctx context.Context, ev LifecycleEvent) (string, error) {
	id := ev.Metadata.Identity()
	key := naming.DataVolume(id, ev.Metadata.Slot)
	logger := logging.FromContext(ctx)

	volumeID, found, err := p.registry.Get(ctx, key)
	if err != nil {
		return "", cluster.Transport("registry get "+key, err)
	}
	if found && volumeID != "" {
		logger.Info("reusing registered data volume", "volume", volumeID)
		return volumeID, nil
	}

	logger.Info("no data volume registered, restoring from latest snapshot")
	seedTags := labels.NewLabelBuilder(id).
		WithName(naming.VolumeName(id.Role, naming.SnapshotSourceSlot)).
		Build()
	snaps, err := p.volumes.Snapshots(ctx, seedTags)
	if err != nil {
		return "", cluster.Transport("describe snapshots", err)
	}
	snap, ok := LatestSnapshot(snaps)
	if !ok {
		return "", &cluster.ConfigError{
			Field:  key,
			Reason: fmt.Sprintf("no data volume registered and no snapshot tagged %s", seedTags[labels.KeyName]),
		}
	}

	zone, err := p.volumes.InstanceZone(ctx, ev.InstanceID)
	if err != nil {
		return "", cluster.Transport("describe instance "+ev.InstanceID, err)
	}

	volumeID, err = p.volumes.CreateVolume(ctx, VolumeRequest{
		SnapshotID: snap.ID,
		Zone:       zone,
		VolumeType: p.opts.VolumeType,
		IOPS:       p.opts.VolumeIOPS,
		Encrypted:  p.opts.Encrypted,
		Tags: labels.NewLabelBuilder(id).
			WithName(naming.VolumeName(id.Role, ev.Metadata.Slot)).
			WithManagedBy(labels.ManagedByRsjoin).
			Build(),
	})
	if err != nil {
		return "", cluster.Transport("create volume", err)
	}
	metrics.RecordVolumeCreated(id.Role)
	logger.Info("created data volume", "volume", volumeID, "snapshot", snap.ID, "zone", zone)

	if err := p.registry.Put(ctx, key, volumeID, true); err != nil {
		return "", cluster.Transport("registry put "+key, err)
	}
	return volumeID, nil
}
