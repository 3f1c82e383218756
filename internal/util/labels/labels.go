package labels

import (
	"sort"

	"github.com/imamik/rsjoin/internal/cluster"
)

// Standard tag keys. These match the keys the infrastructure templates put on
// volumes and snapshots, so they carry no domain prefix.
const (
	KeyName        = "Name"
	KeyProject     = "Project"
	KeyEnvironment = "Environment"
	KeyRole        = "Role"
	KeyManagedBy   = "ManagedBy"
)

// ManagedByRsjoin marks resources created by this tool.
const ManagedByRsjoin = "rsjoin"

// LabelBuilder provides a fluent interface for building resource tags.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a builder with the project and environment tags set.
func NewLabelBuilder(id cluster.Identity) *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyProject:     id.Project,
			KeyEnvironment: id.Environment,
		},
	}
}

// WithName sets the Name tag.
func (lb *LabelBuilder) WithName(name string) *LabelBuilder {
	lb.labels[KeyName] = name
	return lb
}

// WithRole sets the Role tag.
func (lb *LabelBuilder) WithRole(role string) *LabelBuilder {
	lb.labels[KeyRole] = role
	return lb
}

// WithManagedBy sets who manages this resource.
func (lb *LabelBuilder) WithManagedBy(manager string) *LabelBuilder {
	lb.labels[KeyManagedBy] = manager
	return lb
}

// Merge adds all labels from the provided map.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	for k, v := range extra {
		lb.labels[k] = v
	}
	return lb
}

// Build returns a copy of the labels map.
func (lb *LabelBuilder) Build() map[string]string {
	result := make(map[string]string, len(lb.labels))
	for k, v := range lb.labels {
		result[k] = v
	}
	return result
}

// SortedKeys returns the keys of labels in lexical order, for stable request
// payloads and log output.
func SortedKeys(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
