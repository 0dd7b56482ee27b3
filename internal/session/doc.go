// Package session holds the mutable state of one companion session: the
// connection flag, the latest server config, merged log history, the rolling
// performance history, observers and plugin content.
//
// A Store is created by main and injected into the poller, the API and the
// WebSocket hub; there is no package-level state. Logs and persisted plugin
// items are reconciled with merge.UnionBy so repeated polls are idempotent.
package session
