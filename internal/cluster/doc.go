// Package cluster defines the shared model for a replica set under management:
// its identity, the registered member nodes, and the error taxonomy used at
// component boundaries.
//
// # Core Types
//
// Identity names the cluster (project, environment, role). NodeIdentity is one
// provisioned member, keyed by slot. Membership is the ordered member list read
// from the registry at the start of every convergence attempt.
//
// # Errors
//
// ErrDeferred signals a concurrency conflict that must be retried by the
// delivery layer. ConfigError marks missing required registry entries.
// TransportError wraps failed collaborator calls.
package cluster
