package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the settings file.
const (
	DefaultHost           = "http://localhost"
	DefaultPort           = 4004
	DefaultTimeout        = 3 * time.Second
	DefaultPollInterval   = 1 * time.Second
	DefaultHistory        = 600
	DefaultReconnectMax   = 30 * time.Second
	DefaultListenAddr     = "127.0.0.1:4010"
	DefaultCacheBackend   = "memory"
	DefaultCacheUnit      = time.Minute
	DefaultCacheCodec     = "json"
	DefaultAssetsDir      = "assets"
	DefaultTextEditorPath = "/usr/local/bin/code"
	DefaultTheme          = "system"
	DefaultNotifyCooldown = 10 * time.Second
)

// Config is the full companion settings tree.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Poll   PollConfig   `yaml:"poll"`
	Listen ListenConfig `yaml:"listen"`
	Cache  CacheConfig  `yaml:"cache"`
	Assets AssetsConfig `yaml:"assets"`
	Notify NotifyConfig `yaml:"notify"`

	// TextEditorPath is the editor used to open files referenced by traces.
	TextEditorPath string `yaml:"text_editor_path"`

	// Theme is one of: system | light | dark. Stored for the front-end.
	Theme string `yaml:"theme"`
}

// ServerConfig locates the Feather server being observed.
type ServerConfig struct {
	// Host is the scheme and host, e.g. "http://localhost".
	Host string `yaml:"host"`

	// Port is the Feather HTTP port.
	Port int `yaml:"port"`

	// APIKey is sent as x-api-key on every request when non-empty.
	// APIKeyEnv, when set, takes precedence and names an environment variable.
	APIKey    string `yaml:"api_key,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`

	// Timeout bounds every request to the server.
	Timeout time.Duration `yaml:"timeout"`
}

// URL returns the base URL, "host:port".
func (s ServerConfig) URL() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// Key returns the API key, resolving APIKeyEnv from the environment first.
func (s ServerConfig) Key() string {
	if s.APIKeyEnv != "" {
		if v := os.Getenv(s.APIKeyEnv); v != "" {
			return v
		}
	}
	return s.APIKey
}

// PollConfig controls the polling loop.
type PollConfig struct {
	// Interval is the fixed tick between polls.
	Interval time.Duration `yaml:"interval"`

	// Paused stops periodic fetches without dropping held state.
	Paused bool `yaml:"paused"`

	// Plugins lists plugin keys polled at /plugins/{key}. When empty, every
	// plugin advertised by /config is polled.
	Plugins []string `yaml:"plugins"`

	// History caps the number of performance snapshots held in memory.
	History int `yaml:"history"`

	// ReconnectMax caps the backoff between /config attempts while disconnected.
	ReconnectMax time.Duration `yaml:"reconnect_max"`
}

// ListenConfig configures the local dashboard API.
type ListenConfig struct {
	Addr string `yaml:"addr"`

	// APIKeyEnv names the environment variable holding the key clients of the
	// local API must present in x-api-key. Empty disables the check.
	APIKeyEnv string `yaml:"api_key_env"`
}

// Key returns the local API key resolved from the environment.
func (l ListenConfig) Key() string {
	if l.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(l.APIKeyEnv)
}

// CacheConfig configures the expiring asset cache.
type CacheConfig struct {
	// Backend is one of: memory | sqlite.
	Backend string `yaml:"backend"`

	// Path is the SQLite file used when Backend == "sqlite".
	Path string `yaml:"path"`

	// Unit is the TTL time unit.
	Unit time.Duration `yaml:"unit"`

	// Codec is one of: json | msgpack.
	Codec string `yaml:"codec"`
}

// AssetsConfig configures generated asset output.
type AssetsConfig struct {
	Dir string `yaml:"dir"`
}

// NotifyConfig configures connection notifications.
type NotifyConfig struct {
	Webhooks []WebhookConfig `yaml:"webhooks"`

	// Cooldown suppresses repeats of the same event kind within this window.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Default returns a Config pre-populated with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    DefaultHost,
			Port:    DefaultPort,
			Timeout: DefaultTimeout,
		},
		Poll: PollConfig{
			Interval:     DefaultPollInterval,
			History:      DefaultHistory,
			ReconnectMax: DefaultReconnectMax,
		},
		Listen: ListenConfig{Addr: DefaultListenAddr},
		Cache: CacheConfig{
			Backend: DefaultCacheBackend,
			Unit:    DefaultCacheUnit,
			Codec:   DefaultCacheCodec,
		},
		Assets:         AssetsConfig{Dir: DefaultAssetsDir},
		Notify:         NotifyConfig{Cooldown: DefaultNotifyCooldown},
		TextEditorPath: DefaultTextEditorPath,
		Theme:          DefaultTheme,
	}
}

// Load reads and parses the YAML settings file at path.
// Missing optional fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but returns Default() when path does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Save validates cfg and writes it to path, replacing the file atomically.
func Save(path string, cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal yaml: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".companion-*.yaml")
	if err != nil {
		return fmt.Errorf("config: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("config: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("config: replace %q: %w", path, err)
	}
	return nil
}

// Validate checks required fields and structural constraints.
func Validate(cfg *Config) error {
	u, err := url.Parse(cfg.Server.Host)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server.host %q must be an http(s) URL without port", cfg.Server.Host)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range [1, 65535]", cfg.Server.Port)
	}
	if cfg.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}
	if cfg.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive")
	}
	if cfg.Poll.History <= 0 {
		return fmt.Errorf("poll.history must be positive")
	}
	if cfg.Poll.ReconnectMax < cfg.Poll.Interval {
		return fmt.Errorf("poll.reconnect_max must be at least poll.interval")
	}
	if cfg.Listen.Addr == "" {
		return fmt.Errorf("listen.addr is required")
	}
	switch cfg.Cache.Backend {
	case "memory":
	case "sqlite":
		if cfg.Cache.Path == "" {
			return fmt.Errorf("cache.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("cache.backend %q unknown: want memory|sqlite", cfg.Cache.Backend)
	}
	if cfg.Cache.Unit <= 0 {
		return fmt.Errorf("cache.unit must be positive")
	}
	switch cfg.Cache.Codec {
	case "json", "msgpack":
	default:
		return fmt.Errorf("cache.codec %q unknown: want json|msgpack", cfg.Cache.Codec)
	}
	switch cfg.Theme {
	case "system", "light", "dark":
	default:
		return fmt.Errorf("theme %q unknown: want system|light|dark", cfg.Theme)
	}
	for i, wh := range cfg.Notify.Webhooks {
		switch wh.Type {
		case "slack", "http":
		default:
			return fmt.Errorf("notify.webhooks[%d]: unknown type %q", i, wh.Type)
		}
	}
	return nil
}
