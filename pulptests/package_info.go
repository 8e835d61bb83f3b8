// Package pulptests contains the contract-test suite that is run against a
// Pulp deployment: content upload and publish workflows, syncs from local
// fixture origins (plain, proxied, and TLS), and service lifecycle checks.
package pulptests
