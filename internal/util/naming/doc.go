// Package naming provides consistent naming for registry paths and cloud resources.
//
// Registry keys follow the hierarchy /{project}/{environment}/{role}/{category}/{slot}.
// Volumes are named datavol-{role}-{slot}; the slot 0 data volume is the
// snapshot source for every other slot.
package naming
