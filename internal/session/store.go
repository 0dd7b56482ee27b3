package session

import (
	"sort"
	"sync"
	"time"

	"github.com/kyonru/feather-companion/internal/merge"
	"github.com/kyonru/feather-companion/pkg/types"
)

// DefaultHistory is the metric history cap used when New is given <= 0.
const DefaultHistory = 600

// MetricSample is a performance snapshot with the time it was received.
type MetricSample struct {
	At     time.Time               `json:"at"`
	Metric types.PerformanceMetric `json:"metric"`
}

// PluginEntry is the held content of one plugin.
type PluginEntry struct {
	Content   types.PluginContent
	UpdatedAt time.Time
}

// Store is the session state container. It starts disconnected.
//
// All exported methods are safe for concurrent use. Slices returned by the
// accessors are copies.
type Store struct {
	mu sync.RWMutex

	disconnected       bool
	paused             bool
	config             *types.ServerConfig
	logs               []types.Log
	screenshotsEnabled bool
	metrics            []MetricSample
	historyCap         int
	observers          []types.Observer
	plugins            map[string]*PluginEntry
	lastSeen           time.Time

	now func() time.Time // injectable for deterministic tests
}

// New creates a disconnected Store keeping at most history metric samples.
func New(history int) *Store {
	if history <= 0 {
		history = DefaultHistory
	}
	return &Store{
		disconnected: true,
		historyCap:   history,
		logs:         []types.Log{},
		observers:    []types.Observer{},
		plugins:      make(map[string]*PluginEntry),
		now:          time.Now,
	}
}

// Connected reports whether the last poll reached the server.
func (s *Store) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.disconnected
}

// SetDisconnected records the connection state and reports whether it changed.
func (s *Store) SetDisconnected(disconnected bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := s.disconnected != disconnected
	s.disconnected = disconnected
	if !disconnected {
		s.lastSeen = s.now()
	}
	return changed
}

// LastSeen returns when the server last answered a poll.
func (s *Store) LastSeen() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// Paused reports whether periodic polling is paused.
func (s *Store) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

// SetPaused gates the periodic fetches.
func (s *Store) SetPaused(p bool) {
	s.mu.Lock()
	s.paused = p
	s.mu.Unlock()
}

// Config returns the latest server config, or nil when unknown.
func (s *Store) Config() *types.ServerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// SetConfig replaces the server config wholesale. nil marks it unknown.
// Callers must not modify cfg after calling SetConfig.
func (s *Store) SetConfig(cfg *types.ServerConfig) {
	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
}

// MergeLogs reconciles incoming logs into the held history by id and returns
// the number of logs held afterwards.
func (s *Store) MergeLogs(incoming []types.Log) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = merge.UnionBy(s.logs, incoming, func(l types.Log) string { return l.ID })
	return len(s.logs)
}

// ClearLogs drops the held log history.
func (s *Store) ClearLogs() {
	s.mu.Lock()
	s.logs = []types.Log{}
	s.mu.Unlock()
}

// Logs returns a copy of the held log history in merge order.
func (s *Store) Logs() []types.Log {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Log, len(s.logs))
	copy(out, s.logs)
	return out
}

// ScreenshotsEnabled reports the server's screenshot capture flag as of the
// last logs poll.
func (s *Store) ScreenshotsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.screenshotsEnabled
}

// SetScreenshotsEnabled records the server's screenshot capture flag.
func (s *Store) SetScreenshotsEnabled(v bool) {
	s.mu.Lock()
	s.screenshotsEnabled = v
	s.mu.Unlock()
}

// Observers returns a copy of the latest observer list.
func (s *Store) Observers() []types.Observer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Observer, len(s.observers))
	copy(out, s.observers)
	return out
}

// SetObservers replaces the observer list.
func (s *Store) SetObservers(obs []types.Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append([]types.Observer(nil), obs...)
	if s.observers == nil {
		s.observers = []types.Observer{}
	}
}

// SetPluginContent stores the latest content for plugin key. When the
// content is marked Persist, its items are merged by name into the items
// already held; otherwise the content replaces what was held.
func (s *Store) SetPluginContent(key string, pc types.PluginContent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pc.Persist {
		var prev []types.PluginItem
		if e, ok := s.plugins[key]; ok {
			prev = e.Content.Data
		}
		pc.Data = merge.UnionBy(prev, pc.Data, func(it types.PluginItem) string { return it.Name })
	}
	s.plugins[key] = &PluginEntry{Content: pc, UpdatedAt: s.now()}
}

// PluginContent returns a copy of the held content for plugin key.
func (s *Store) PluginContent(key string) (types.PluginContent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.plugins[key]
	if !ok {
		return types.PluginContent{}, false
	}
	pc := e.Content
	pc.Data = append([]types.PluginItem(nil), e.Content.Data...)
	return pc, true
}

// PluginKeys returns the keys of all plugins with held content.
func (s *Store) PluginKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pluginKeysLocked()
}

func (s *Store) pluginKeysLocked() []string {
	out := make([]string, 0, len(s.plugins))
	for k := range s.plugins {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
