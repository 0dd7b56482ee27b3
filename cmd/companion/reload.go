package main

import (
	"log/slog"

	"github.com/kyonru/feather-companion/internal/config"
	"github.com/kyonru/feather-companion/internal/feather"
	"github.com/kyonru/feather-companion/internal/poller"
	"github.com/kyonru/feather-companion/internal/session"
)

// reloader applies a hot-reloaded settings file to the running components.
type reloader struct {
	client *feather.Client
	store  *session.Store
	poll   *poller.Poller

	// serverOverride is the --server flag. When set it keeps precedence over
	// the file's host and port; the key and timeout still follow the file.
	serverOverride string
}

func (r *reloader) apply(updated *config.Config) {
	url := updated.Server.URL()
	if r.serverOverride != "" {
		url = r.serverOverride
	}
	key := updated.Server.Key()

	urlChanged := url != r.client.BaseURL()
	if urlChanged || key != r.client.APIKey() {
		r.client.SetServer(url, key)
		if urlChanged {
			r.store.SetDisconnected(true)
		}
		r.poll.Reset()
		slog.Info("config: server changed", "server", url, "address_changed", urlChanged)
	}
	r.client.SetTimeout(updated.Server.Timeout)
	r.store.SetPaused(updated.Poll.Paused)
	r.poll.SetPlugins(updated.Poll.Plugins)
	slog.Info("config hot-reloaded",
		"paused", updated.Poll.Paused,
		"plugins", len(updated.Poll.Plugins),
		"timeout", updated.Server.Timeout,
	)
}
