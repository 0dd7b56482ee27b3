// Package config loads, saves and watches the companion settings file
// (companion.yaml).
//
// Top-level types:
//   - Config{Server, Poll, Listen, Cache, Assets, Notify, TextEditorPath, Theme}
//   - ServerConfig: Feather host, port, api key (literal or from env), timeout
//   - PollConfig: interval, paused flag, plugin keys, metric history cap,
//     reconnect backoff ceiling
//   - ListenConfig: local dashboard API address and optional API key env
//   - CacheConfig: backend (memory|sqlite), path, TTL unit, codec
//   - NotifyConfig: webhook targets and per-event cooldown
//
// Load(path) reads the YAML file, applies defaults (http://localhost:4004,
// 1s poll, 3s timeout, 1m cache unit), then validates enums and ranges.
// Save(path) writes the settings back atomically.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config; a reload that fails to parse keeps
// the previous settings.
package config
