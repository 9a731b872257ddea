// Package inbox implements the disposable-inbox provider client.
//
// The client binds interfaces.InboxClient to an fviainboxes-compatible HTTP
// API: domain discovery, per-address message listings, and raw message
// bodies. Authentication uses the provider's bearer token, which always comes
// from configuration.
//
// MockClient provides a testify-backed substitute for tests.
package inbox
