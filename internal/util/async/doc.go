// Package async runs a small set of independent read-only tasks concurrently.
//
// [RunParallel] starts every task, waits for all of them, and returns the
// first failure annotated with the task name. It is used to fetch registry
// prefixes side by side; it is never used for mutating remote commands,
// which stay strictly serial.
package async
