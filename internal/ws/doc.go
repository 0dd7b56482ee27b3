// Package ws streams session state to dashboard clients over WebSocket.
//
// Hub manages a set of connected clients. Run broadcasts the session
// snapshot on a fixed interval and forwards every notification it receives.
// ServeHTTP upgrades a connection, sends the current snapshot immediately
// and then streams updates.
//
// Message format sent to clients:
//
//	{"event": "snapshot",     "data": { /* session.Snapshot */ }}
//	{"event": "notification", "data": { /* notify.Event */ }}
//
// The upgrader accepts all origins; the companion listens on loopback by
// default. Mounted at /ws/stream.
package ws
