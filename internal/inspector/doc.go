// Package inspector classifies a replica set by reading its replication
// status from the representative member.
package inspector
