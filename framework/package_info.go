// Package framework provides a generalized mechanism for running a test suite
// against live infrastructure, outside of the Go test runner, with regex-based
// test filtering and per-test debug output capture.
package framework
