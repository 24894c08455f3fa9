// Package vm implements the VM lifecycle state machine for benchmark
// provisioning.
//
// A VM moves through Defined, Started, NetworkBound and Ready; any
// failure routes through Failed into teardown, which force-stops the
// domain, undefines it and removes the disk and seed files it owns.
// Every VM that reaches Started is torn down exactly once, whether the
// run succeeds, fails mid-provisioning or is cancelled.
package vm
