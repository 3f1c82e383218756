// Package labels builds the tag sets attached to cloud resources such as data
// volumes, and the tag filters used to find their snapshots.
package labels
