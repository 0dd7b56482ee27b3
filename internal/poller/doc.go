// Package poller drives the session from a Feather server.
//
// On every tick the Poller either polls /config (while disconnected, with
// exponential backoff) or fetches logs, performance, observers, config and
// plugin content (while connected) and writes the results into a
// session.Store. A failed core fetch flips the session to disconnected and
// keeps the last known data; plugin failures are only logged.
//
// Pausing the session stops new fetches from starting. Requests already in
// flight run to completion.
package poller
