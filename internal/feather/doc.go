// Package feather is the HTTP client for a Feather game-engine server.
//
// Every request is bounded by the configured timeout; a request that times
// out is abandoned and reported as an error, which the poller turns into a
// "disconnected" state. Once an API key is configured it is attached to all
// requests as the x-api-key header by the shared authRoundTripper.
//
// Endpoints: /config, /logs (+ clear and toggle-screenshots actions),
// /performance, /observers and /plugins/{key} with GET, POST actions and PUT
// option updates.
package feather
