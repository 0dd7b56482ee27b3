package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/kyonru/feather-companion/internal/api"
	"github.com/kyonru/feather-companion/internal/assets"
	"github.com/kyonru/feather-companion/internal/cache"
	"github.com/kyonru/feather-companion/internal/config"
	"github.com/kyonru/feather-companion/internal/feather"
	"github.com/kyonru/feather-companion/internal/notify"
	"github.com/kyonru/feather-companion/internal/poller"
	"github.com/kyonru/feather-companion/internal/session"
	"github.com/kyonru/feather-companion/internal/version"
	"github.com/kyonru/feather-companion/internal/ws"
)

func main() {
	if err := run(); err != nil {
		slog.Error("feather-companion stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		listenAddr string
		serverURL  string
		logLevel   string
		showVer    bool
	)

	flagSet := pflag.NewFlagSet("feather-companion", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "companion.yaml", "path to the settings file (created on first save)")
	flagSet.StringVar(&listenAddr, "listen", "", "override listen.addr for the dashboard API")
	flagSet.StringVar(&serverURL, "server", "", "override the Feather server URL, e.g. http://localhost:4004")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
	flagSet.BoolVar(&showVer, "version", false, "print the version and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVer {
		fmt.Println(version.Version)
		return nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q", logLevel)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("feather-companion starting", "version", version.Version, "config", configPath)

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if listenAddr != "" {
		cfg.Listen.Addr = listenAddr
	}
	baseURL := cfg.Server.URL()
	if serverURL != "" {
		baseURL = serverURL
	}
	slog.Info("config loaded",
		"server", baseURL,
		"listen", cfg.Listen.Addr,
		"poll_interval", cfg.Poll.Interval,
		"cache_backend", cfg.Cache.Backend,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	storage, closeStorage, err := openStorage(cfg.Cache)
	if err != nil {
		return err
	}
	defer closeStorage()
	codec := cache.CodecByName(cfg.Cache.Codec)

	client := feather.New(feather.Options{
		BaseURL: baseURL,
		APIKey:  cfg.Server.Key(),
		Timeout: cfg.Server.Timeout,
	})

	store := session.New(cfg.Poll.History)
	store.SetPaused(cfg.Poll.Paused)

	notifier := notify.New(cfg.Notify, version.Version)
	poll := poller.New(client, store, notifier, cfg.Poll)
	go poll.Run(ctx)

	gate := assets.NewGate(storage, cfg.Assets.Dir, cache.WithCodec(codec))

	events, unsubscribe := notifier.Subscribe()
	defer unsubscribe()
	hub := ws.New(store, cfg.Poll.Interval)
	go hub.Run(ctx, events)

	// Settings hot-reload. --server keeps precedence over the file.
	reload := &reloader{client: client, store: store, poll: poll, serverOverride: serverURL}
	go func() {
		if err := config.Watch(ctx, configPath, reload.apply); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	releases := cache.New(storage, "release", cache.WithUnit(cfg.Cache.Unit), cache.WithCodec(codec))
	go checkLatest(ctx, version.NewLatestChecker(releases, releaseTTLUnits))

	mux := http.NewServeMux()
	apiHandler := api.New(api.Deps{
		Store:            store,
		Server:           client,
		Logs:             poll,
		Events:           notifier,
		Assets:           gate,
		AssetsDir:        cfg.Assets.Dir,
		Settings:         config.NewPersister(configPath),
		CompanionVersion: version.Version,
	})
	mux.Handle("/api/", apiHandler)
	mux.Handle("/metrics", apiHandler)
	mux.Handle(assets.Route, apiHandler)
	mux.Handle("/ws/stream", hub)

	httpSrv := &http.Server{
		Addr:              cfg.Listen.Addr,
		Handler:           api.RequireAPIKey(cfg.Listen.Key(), mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(ctx, httpSrv)
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
// A listener failure is returned instead of waiting for a signal.
func serve(ctx context.Context, srv *http.Server) error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}
	slog.Info("feather-companion shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	return srv.Shutdown(shutdownCtx)
}

// openStorage returns the configured cache backend and its closer.
func openStorage(cfg config.CacheConfig) (cache.Storage, func(), error) {
	if cfg.Backend != "sqlite" {
		return cache.NewMemoryStorage(0), func() {}, nil
	}
	st, err := cache.OpenSQLStorage(cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open cache: %w", err)
	}
	return st, func() {
		if err := st.Close(); err != nil {
			slog.Warn("cache: close failed", "err", err)
		}
	}, nil
}

// releaseTTLUnits is how many cache units a release lookup is reused for.
const releaseTTLUnits = 60

// checkLatest logs when a newer companion release exists.
func checkLatest(ctx context.Context, checker *version.LatestChecker) {
	if !version.Valid(version.Version) {
		return
	}
	latest, err := checker.IsLatest(ctx, version.Version)
	if err != nil {
		slog.Debug("version: latest release lookup failed", "err", err)
		return
	}
	if !latest {
		slog.Info("version: newer release available", "current", version.Version, "url", version.ReleasesPage)
	}
}
