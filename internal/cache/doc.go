// Package cache is a namespaced key/value cache with optional per-key expiry,
// persisted through a pluggable Storage backend.
//
// Keys are stored as "bucket:key". When a TTL is given, a second slot
// "bucket:key__expiry" holds the absolute expiry as unix milliseconds.
// Expired entries are evicted lazily on the next Get; Flush removes every
// key under the current bucket.
//
// The cache is a performance optimisation, never a source of truth: every
// failure (quota, IO, corrupt payload) degrades to a miss or a failed write,
// is logged with slog, and is never returned to the caller.
//
// Backends: MemoryStorage (insertion ordered, optional byte quota) and
// SQLStorage (gorm + sqlite, survives restarts). Codecs: JSONCodec (default)
// and MsgpackCodec.
package cache
