// Package harness provides the local fixture infrastructure the test suite
// runs against a live Pulp deployment: background HTTP(S) fixture servers on
// ephemeral ports, forward-proxy fixtures with optional auth/TLS, test
// certificate authorities, remote-object cleanup tracking, and service
// start/stop with readiness polling.
package harness
