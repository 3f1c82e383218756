// Package convergence drives one replica set toward its registered
// membership in a single pass: inspect, then initialize the set, add the
// missing members, or do nothing.
//
// [Controller.Converge] never returns an error. Every failure is folded into
// the [Report] it returns, so the caller decides how to surface it.
package convergence
