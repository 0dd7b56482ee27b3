package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kyonru/feather-companion/internal/config"
	"github.com/kyonru/feather-companion/internal/session"
	"github.com/kyonru/feather-companion/pkg/types"
)

// Source is the Feather server API the Poller reads from.
// *feather.Client implements it.
type Source interface {
	BaseURL() string
	Config(ctx context.Context) (*types.ServerConfig, error)
	Logs(ctx context.Context) (*types.LogsEnvelope, error)
	ClearLogs(ctx context.Context) error
	Performance(ctx context.Context) (*types.PerformanceMetric, error)
	Observers(ctx context.Context) ([]types.Observer, error)
	Plugin(ctx context.Context, key string) (*types.PluginContent, error)
}

// Notifier receives connection transitions. *notify.Notifier implements it.
type Notifier interface {
	Connected(serverURL, serverVersion string)
	Disconnected(serverURL string, cause error)
}

type nopNotifier struct{}

func (nopNotifier) Connected(string, string)   {}
func (nopNotifier) Disconnected(string, error) {}

// Poller periodically refreshes a session.Store from a Source.
type Poller struct {
	src      Source
	store    *session.Store
	notifier Notifier
	interval time.Duration

	mu          sync.Mutex
	plugins     []string
	bo          *backoff
	nextAttempt time.Time

	now func() time.Time // injectable for deterministic tests
}

// New creates a Poller. notifier may be nil.
func New(src Source, store *session.Store, notifier Notifier, cfg config.PollConfig) *Poller {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}
	return &Poller{
		src:      src,
		store:    store,
		notifier: notifier,
		interval: interval,
		plugins:  append([]string(nil), cfg.Plugins...),
		bo:       newBackoff(interval, cfg.ReconnectMax),
		now:      time.Now,
	}
}

// SetPlugins replaces the explicit plugin list. An empty list polls every
// plugin advertised by the server config.
func (p *Poller) SetPlugins(keys []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plugins = append([]string(nil), keys...)
}

// Reset forgets any pending reconnect delay so the next tick retries the
// server immediately. Used after the server address or key changes.
func (p *Poller) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bo.reset()
	p.nextAttempt = time.Time{}
}

// Run ticks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	slog.Info("poller: started", "server", p.src.BaseURL(), "interval", p.interval)

	p.Tick(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("poller: stopped")
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick performs one polling round.
func (p *Poller) Tick(ctx context.Context) {
	if p.store.Paused() {
		return
	}
	if p.store.Connected() {
		p.refresh(ctx, true)
		return
	}
	if p.reconnect(ctx) {
		p.refresh(ctx, false)
	}
}

// reconnect polls /config while disconnected and reports whether the server
// answered.
func (p *Poller) reconnect(ctx context.Context) bool {
	p.mu.Lock()
	wait := p.now().Before(p.nextAttempt)
	p.mu.Unlock()
	if wait {
		return false
	}

	cfg, err := p.src.Config(ctx)
	if err != nil {
		p.store.SetConfig(nil)
		p.mu.Lock()
		d := p.bo.next()
		p.nextAttempt = p.now().Add(d)
		p.mu.Unlock()
		slog.Debug("poller: server unreachable", "server", p.src.BaseURL(), "err", err, "retry_in", d)
		return false
	}

	p.mu.Lock()
	p.bo.reset()
	p.nextAttempt = time.Time{}
	p.mu.Unlock()

	p.store.SetConfig(cfg)
	if p.store.SetDisconnected(false) {
		p.notifier.Connected(p.src.BaseURL(), cfg.Version)
	}
	return true
}

// refresh fetches all connected-state resources concurrently. withConfig is
// false right after reconnect already fetched it.
func (p *Poller) refresh(ctx context.Context, withConfig bool) {
	var g errgroup.Group

	if withConfig {
		g.Go(func() error {
			cfg, err := p.src.Config(ctx)
			if err != nil {
				p.store.SetConfig(nil)
				return fmt.Errorf("config: %w", err)
			}
			p.store.SetConfig(cfg)
			return nil
		})
	}
	g.Go(func() error {
		env, err := p.src.Logs(ctx)
		if err != nil {
			return fmt.Errorf("logs: %w", err)
		}
		p.store.MergeLogs(env.Data)
		p.store.SetScreenshotsEnabled(env.ScreenshotEnabled)
		return nil
	})
	g.Go(func() error {
		m, err := p.src.Performance(ctx)
		if err != nil {
			return fmt.Errorf("performance: %w", err)
		}
		p.store.AppendMetric(*m)
		return nil
	})
	g.Go(func() error {
		obs, err := p.src.Observers(ctx)
		if err != nil {
			return fmt.Errorf("observers: %w", err)
		}
		p.store.SetObservers(obs)
		return nil
	})

	for _, key := range p.pluginKeys() {
		key := key
		g.Go(func() error {
			pc, err := p.src.Plugin(ctx, key)
			if err != nil {
				slog.Warn("poller: plugin fetch failed", "plugin", key, "err", err)
				return nil
			}
			p.store.SetPluginContent(key, *pc)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		slog.Warn("poller: fetch failed", "server", p.src.BaseURL(), "err", err)
		if p.store.SetDisconnected(true) {
			p.notifier.Disconnected(p.src.BaseURL(), err)
		}
	}
}

// pluginKeys returns the explicit plugin list, or the plugins advertised by
// the current server config.
func (p *Poller) pluginKeys() []string {
	p.mu.Lock()
	explicit := append([]string(nil), p.plugins...)
	p.mu.Unlock()
	if len(explicit) > 0 {
		return explicit
	}

	cfg := p.store.Config()
	if cfg == nil {
		return nil
	}
	keys := make([]string, 0, len(cfg.Plugins))
	for k := range cfg.Plugins {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clear drops the held logs and asks the server to clear its own.
func (p *Poller) Clear(ctx context.Context) error {
	p.store.ClearLogs()
	if err := p.src.ClearLogs(ctx); err != nil {
		return fmt.Errorf("poller: clear logs: %w", err)
	}
	return nil
}
