// Package api implements the local JSON API the dashboard front-end reads.
//
// New(deps) returns an http.Handler that serves:
//
//	GET  /api/v1/status                        connection, pause and version state
//	GET  /api/v1/logs                          held logs and the screenshot flag
//	POST /api/v1/logs/clear                    clear held and server logs
//	POST /api/v1/logs/screenshots              toggle screenshots on the server
//	GET  /api/v1/performance?window=30s        samples and summary for a window
//	GET  /api/v1/observers                     latest observer key/values
//	GET  /api/v1/config                        server config; 503 while disconnected
//	GET  /api/v1/plugins/{key}                 held plugin content
//	PUT  /api/v1/plugins/{key}                 update plugin options on the server
//	POST /api/v1/plugins/{key}/actions/{name}  run a plugin action on the server
//	POST /api/v1/paused                        pause or resume polling
//	GET  /api/v1/events                        recent connection notifications
//	POST /api/v1/assets/gif                    generate or reuse an animated GIF
//	GET  /metrics                              latest performance sample, Prometheus text format
//
// All /api/v1 endpoints respond with Content-Type: application/json and
// return 405 for unsupported methods. Errors are {"error": "..."}.
//
// RequireAPIKey wraps any handler with x-api-key authentication.
package api
