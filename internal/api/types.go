package api

import (
	"github.com/kyonru/feather-companion/internal/session"
)

// StatusResponse is the payload for GET /api/v1/status.
type StatusResponse struct {
	Server           string           `json:"server"`
	CompanionVersion string           `json:"companion_version"`
	VersionMismatch  bool             `json:"version_mismatch"`
	Session          session.Snapshot `json:"session"`
}

// PerformanceResponse is the payload for GET /api/v1/performance.
type PerformanceResponse struct {
	Window  string                 `json:"window,omitempty"`
	Summary session.MetricSummary  `json:"summary"`
	Health  session.Health         `json:"health"`
	Samples []session.MetricSample `json:"samples"`
}

// PausedRequest is the body of POST /api/v1/paused.
type PausedRequest struct {
	Paused bool `json:"paused"`
}

// ScreenshotsResponse is the payload for POST /api/v1/logs/screenshots.
type ScreenshotsResponse struct {
	ScreenshotEnabled bool `json:"screenshot_enabled"`
}

// okResponse acknowledges a command.
type okResponse struct {
	OK bool `json:"ok"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
