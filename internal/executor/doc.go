// Package executor sends one shell command to a set of managed nodes and
// waits for each node's invocation to reach a terminal state.
//
// The transport is a [Dispatcher]. Waiting follows a [Policy]: a settle delay
// after submission, then a fixed-interval poll per target, in target order.
// There is no client-side deadline; the only early exit is cancellation of
// the caller's context, reported as a TimedOut outcome.
package executor
