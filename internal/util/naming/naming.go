package naming

import (
	"fmt"
	"strings"

	"github.com/imamik/rsjoin/internal/cluster"
)

// Registry categories stored under each cluster identity.
const (
	CategoryInstanceID = "instanceid"
	CategoryDNS        = "dns"
	CategoryENI        = "eipeni"
	CategoryDataVolume = "datavol"
	CategoryLogsVolume = "logsvol"
)

// SnapshotSourceSlot is the slot whose data volume snapshots seed new volumes.
const SnapshotSourceSlot = "0"

// Prefix returns the registry prefix for a category, with a trailing slash.
func Prefix(id cluster.Identity, category string) string {
	return fmt.Sprintf("/%s/%s/%s/%s/", id.Project, id.Environment, id.Role, category)
}

// Path returns the registry key for one slot of a category.
func Path(id cluster.Identity, category, slot string) string {
	return Prefix(id, category) + slot
}

// SlotFromPath returns the last segment of a registry key.
func SlotFromPath(path string) string {
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

func InstanceID(id cluster.Identity, slot string) string {
	return Path(id, CategoryInstanceID, slot)
}

func DNS(id cluster.Identity, slot string) string {
	return Path(id, CategoryDNS, slot)
}

func ENI(id cluster.Identity, slot string) string {
	return Path(id, CategoryENI, slot)
}

func DataVolume(id cluster.Identity, slot string) string {
	return Path(id, CategoryDataVolume, slot)
}

func LogsVolume(id cluster.Identity, slot string) string {
	return Path(id, CategoryLogsVolume, slot)
}

// VolumeName is the Name tag of a slot's data volume.
func VolumeName(role, slot string) string {
	return fmt.Sprintf("datavol-%s-%s", role, slot)
}

// MemberHost appends the database port to a member address.
func MemberHost(address string, port int) string {
	return fmt.Sprintf("%s:%d", address, port)
}
