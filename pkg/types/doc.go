// Package types defines the wire types exchanged with a Feather server.
// These are the canonical in-memory representations of logs, performance
// snapshots, observers, server configuration and plugin content, shared by
// the client, the session store and the local dashboard API.
package types
