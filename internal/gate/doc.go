// Package gate admits node-ready triggers into convergence runs, making sure
// at most one run is active per cluster at a time.
//
// The source of truth for "active" is an external [Oracle], since concurrent
// triggers are handled by separate processes. A trigger that finds a run in
// flight waits for it within its time [Budget] and is deferred, not dropped,
// when the budget runs out. Deferral is reported as cluster.ErrDeferred so
// the delivery layer can redeliver the trigger later.
//
// An admitted run gets only what is left of the budget. Releasing the run
// and journaling its report are detached from the invocation context, so a
// run cut off at its deadline still gives up its claim.
package gate
