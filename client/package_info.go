// Package client is a minimal Pulp v3 REST API client for the contract-test
// suite: generic resource create/read/delete/list, content upload, repository
// actions, task monitoring, and the status endpoint. It models only what the
// tests consume; it is not a complete binding.
package client
