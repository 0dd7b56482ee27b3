package session

import (
	"time"

	"github.com/kyonru/feather-companion/pkg/types"
)

// Snapshot is a point-in-time view of the session for API and WebSocket
// consumers. It excludes the log list and plugin content, which are fetched
// through their own endpoints.
type Snapshot struct {
	Connected          bool                     `json:"connected"`
	Paused             bool                     `json:"paused"`
	LastSeen           *time.Time               `json:"last_seen,omitempty"`
	ServerVersion      string                   `json:"server_version,omitempty"`
	LogCount           int                      `json:"log_count"`
	ScreenshotsEnabled bool                     `json:"screenshot_enabled"`
	Latest             *types.PerformanceMetric `json:"latest,omitempty"`
	Observers          []types.Observer         `json:"observers"`
	Plugins            []string                 `json:"plugins"`
	GeneratedAt        time.Time                `json:"generated_at"`
}

// Snapshot returns the current Snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Connected:          !s.disconnected,
		Paused:             s.paused,
		LogCount:           len(s.logs),
		ScreenshotsEnabled: s.screenshotsEnabled,
		Observers:          make([]types.Observer, len(s.observers)),
		Plugins:            s.pluginKeysLocked(),
		GeneratedAt:        s.now(),
	}
	copy(snap.Observers, s.observers)
	if !s.lastSeen.IsZero() {
		ls := s.lastSeen
		snap.LastSeen = &ls
	}
	if s.config != nil {
		snap.ServerVersion = s.config.Version
	}
	if n := len(s.metrics); n > 0 {
		m := s.metrics[n-1].Metric
		snap.Latest = &m
	}
	return snap
}
