// Package testing provides fakes, builders and fixtures shared by the unit
// and scenario tests.
//
// This package centralizes the collaborators every component test needs:
//   - FakeClock: a clock that advances instantly and records each wait
//   - FakeDispatcher: a scripted remote command transport
//   - MemoryRegistry: an in-memory key-value registry
//   - MemoryOracle: an in-memory run oracle with single-flight semantics
//   - MockLifecycle, MockAutomation, MockVolumes: testify mocks for provisioning
//
// Usage:
//
//	reg := testing.NewMemoryRegistry()
//	testing.NewClusterBuilder("MongoDB", "Test", "rsmember").
//	    WithNode("0", "i-1", "dns1").
//	    Seed(reg)
//
//	disp := testing.NewFakeDispatcher().
//	    Reply("rs.status()", executor.StatusSuccess, "NotYetInitialized")
package testing
