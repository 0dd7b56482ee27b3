// Package notify turns session transitions into user-facing events:
// connecting to a server, losing it, and a client/server version mismatch.
//
// Events are kept in a bounded recent history, fanned out to in-process
// subscribers (the WebSocket hub) and delivered to configured webhooks.
// Webhook delivery is asynchronous, rate limited per event kind by a
// cooldown, and its failures are logged but never surface to the poller.
package notify
