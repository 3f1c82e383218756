// Package retry provides the waiting primitives used around external
// operations that settle asynchronously.
//
// [WithExponentialBackoff] retries a failing call with growing delays and is
// used for throttled control-plane writes. [Poller] checks an operation at a
// fixed interval until it reports a terminal state; it is the poll policy for
// remote commands and bootstrap automations. Both wait on a [Clock], so tests
// can substitute a fake one instead of sleeping.
package retry
