// Package provisioner bootstraps a new node when the fleet launches an
// instance into a slot.
//
// For each lifecycle event it resolves the slot's network interface and
// volumes from the registry, restoring the data volume from the latest
// snapshot when the slot has none yet. It then runs the bootstrap automation,
// registers the instance under its slot, and completes the lifecycle action
// with CONTINUE. Any failure completes it with ABANDON instead, including a
// bootstrap that runs out of time: the release timeout is held back from the
// invocation deadline for that completion.
package provisioner
