package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kyonru/feather-companion/internal/assets"
	"github.com/kyonru/feather-companion/internal/config"
	"github.com/kyonru/feather-companion/internal/notify"
	"github.com/kyonru/feather-companion/internal/session"
	"github.com/kyonru/feather-companion/internal/version"
	"github.com/kyonru/feather-companion/pkg/types"
)

const maxBodyBytes = 32 << 20 // GIF frames arrive inline

// Server is the subset of the Feather client the API forwards commands to.
// *feather.Client implements it.
type Server interface {
	BaseURL() string
	ToggleScreenshots(ctx context.Context) error
	PluginAction(ctx context.Context, key, action string, params map[string]any) error
	PluginUpdate(ctx context.Context, key string, params map[string]any) error
}

// LogClearer clears held and server-side logs. *poller.Poller implements it.
type LogClearer interface {
	Clear(ctx context.Context) error
}

// EventSource lists recent notifications. *notify.Notifier implements it.
type EventSource interface {
	Recent() []notify.Event
}

// GifGenerator produces animated GIFs. *assets.Gate implements it.
type GifGenerator interface {
	Gif(ctx context.Context, req assets.GifRequest) (assets.Result, error)
	Generated() int64
}

// Settings persists runtime changes to the settings file.
// *config.Persister implements it.
type Settings interface {
	Update(fn func(*config.Config)) error
}

// Deps are the collaborators of the API handler. Store and Server are
// required; the others may be nil, in which case their routes return 503.
// Without Settings, runtime changes last until the process exits.
type Deps struct {
	Store            *session.Store
	Server           Server
	Logs             LogClearer
	Events           EventSource
	Assets           GifGenerator
	Settings         Settings
	CompanionVersion string

	// AssetsDir is served read-only under assets.Route when set.
	AssetsDir string
}

// Handler is the HTTP handler for all /api/v1/* endpoints, /metrics and
// generated assets.
type Handler struct {
	d   Deps
	mux *http.ServeMux
}

// New creates a Handler wired to deps and registers all routes.
func New(deps Deps) http.Handler {
	h := &Handler{d: deps, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/status", h.status)
	h.mux.HandleFunc("/api/v1/logs", h.logs)
	h.mux.HandleFunc("/api/v1/logs/clear", h.clearLogs)
	h.mux.HandleFunc("/api/v1/logs/screenshots", h.toggleScreenshots)
	h.mux.HandleFunc("/api/v1/performance", h.performance)
	h.mux.HandleFunc("/api/v1/observers", h.observers)
	h.mux.HandleFunc("/api/v1/config", h.config)
	h.mux.HandleFunc("/api/v1/plugins/", h.plugins) // subtree: {key}[/actions/{action}]
	h.mux.HandleFunc("/api/v1/paused", h.paused)
	h.mux.HandleFunc("/api/v1/events", h.events)
	h.mux.HandleFunc("/api/v1/assets/gif", h.gif)
	h.mux.HandleFunc("/metrics", h.metrics)
	if deps.AssetsDir != "" {
		h.mux.Handle(assets.Route, http.StripPrefix(assets.Route, http.FileServer(http.Dir(deps.AssetsDir))))
	}

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// status returns GET /api/v1/status.
func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	snap := h.d.Store.Snapshot()
	jsonResp(w, http.StatusOK, StatusResponse{
		Server:           h.d.Server.BaseURL(),
		CompanionVersion: h.d.CompanionVersion,
		VersionMismatch:  version.Mismatch(h.d.CompanionVersion, snap.ServerVersion),
		Session:          snap,
	})
}

// logs returns GET /api/v1/logs.
func (h *Handler) logs(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	jsonResp(w, http.StatusOK, types.LogsEnvelope{
		Data:              h.d.Store.Logs(),
		ScreenshotEnabled: h.d.Store.ScreenshotsEnabled(),
	})
}

// clearLogs handles POST /api/v1/logs/clear. Held logs are dropped even when
// the server cannot be reached.
func (h *Handler) clearLogs(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if h.d.Logs == nil {
		h.d.Store.ClearLogs()
		jsonResp(w, http.StatusOK, okResponse{OK: true})
		return
	}
	if err := h.d.Logs.Clear(r.Context()); err != nil {
		slog.Warn("api: clear logs failed", "err", err)
		jsonErr(w, http.StatusBadGateway, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, okResponse{OK: true})
}

// toggleScreenshots handles POST /api/v1/logs/screenshots.
func (h *Handler) toggleScreenshots(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if err := h.d.Server.ToggleScreenshots(r.Context()); err != nil {
		slog.Warn("api: toggle screenshots failed", "err", err)
		jsonErr(w, http.StatusBadGateway, err.Error())
		return
	}
	// The next logs poll confirms the flag; flip it now so the UI is current.
	enabled := !h.d.Store.ScreenshotsEnabled()
	h.d.Store.SetScreenshotsEnabled(enabled)
	jsonResp(w, http.StatusOK, ScreenshotsResponse{ScreenshotEnabled: enabled})
}

// performance returns GET /api/v1/performance?window=30s. Without a window
// the whole history is returned.
func (h *Handler) performance(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}

	var window time.Duration
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			jsonErr(w, http.StatusBadRequest, "invalid window")
			return
		}
		window = d
	}

	var samples []session.MetricSample
	if window > 0 {
		samples = h.d.Store.MetricsSince(window)
	} else {
		samples = h.d.Store.Metrics()
	}
	summary := session.Summarize(samples)
	resp := PerformanceResponse{
		Summary: summary,
		Health:  session.ScoreHealth(summary, session.DefaultTargetFPS),
		Samples: samples,
	}
	if window > 0 {
		resp.Window = window.String()
	}
	jsonResp(w, http.StatusOK, resp)
}

// observers returns GET /api/v1/observers.
func (h *Handler) observers(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	jsonResp(w, http.StatusOK, h.d.Store.Observers())
}

// config returns GET /api/v1/config.
func (h *Handler) config(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	cfg := h.d.Store.Config()
	if cfg == nil {
		jsonErr(w, http.StatusServiceUnavailable, "not connected")
		return
	}
	jsonResp(w, http.StatusOK, cfg)
}

// plugins dispatches the /api/v1/plugins/ subtree.
func (h *Handler) plugins(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/plugins/"), "/")
	parts := strings.Split(rest, "/")

	switch {
	case rest == "":
		if !allow(w, r, http.MethodGet) {
			return
		}
		jsonResp(w, http.StatusOK, h.d.Store.PluginKeys())
	case len(parts) == 1:
		h.plugin(w, r, parts[0])
	case len(parts) == 3 && parts[1] == "actions" && parts[2] != "":
		h.pluginAction(w, r, parts[0], parts[2])
	default:
		jsonErr(w, http.StatusNotFound, "not found")
	}
}

// plugin handles GET and PUT /api/v1/plugins/{key}.
func (h *Handler) plugin(w http.ResponseWriter, r *http.Request, key string) {
	switch r.Method {
	case http.MethodGet:
		pc, ok := h.d.Store.PluginContent(key)
		if !ok {
			jsonErr(w, http.StatusNotFound, "plugin not found")
			return
		}
		jsonResp(w, http.StatusOK, pc)
	case http.MethodPut:
		params, ok := readParams(w, r)
		if !ok {
			return
		}
		if err := h.d.Server.PluginUpdate(r.Context(), key, params); err != nil {
			slog.Warn("api: plugin update failed", "plugin", key, "err", err)
			jsonErr(w, http.StatusBadGateway, err.Error())
			return
		}
		jsonResp(w, http.StatusOK, okResponse{OK: true})
	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// pluginAction handles POST /api/v1/plugins/{key}/actions/{action}.
func (h *Handler) pluginAction(w http.ResponseWriter, r *http.Request, key, action string) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	params, ok := readParams(w, r)
	if !ok {
		return
	}
	if err := h.d.Server.PluginAction(r.Context(), key, action, params); err != nil {
		slog.Warn("api: plugin action failed", "plugin", key, "action", action, "err", err)
		jsonErr(w, http.StatusBadGateway, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, okResponse{OK: true})
}

// paused handles POST /api/v1/paused. The new state is written to the
// settings file before it takes effect.
func (h *Handler) paused(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req PausedRequest
	if err := decodeBody(r, &req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid body")
		return
	}
	if h.d.Settings != nil {
		err := h.d.Settings.Update(func(c *config.Config) { c.Poll.Paused = req.Paused })
		if err != nil {
			slog.Warn("api: persist paused state failed", "err", err)
			jsonErr(w, http.StatusInternalServerError, "could not save settings")
			return
		}
	}
	h.d.Store.SetPaused(req.Paused)
	slog.Info("api: polling paused state changed", "paused", req.Paused)
	jsonResp(w, http.StatusOK, req)
}

// events returns GET /api/v1/events.
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	if h.d.Events == nil {
		jsonResp(w, http.StatusOK, []notify.Event{})
		return
	}
	jsonResp(w, http.StatusOK, h.d.Events.Recent())
}

// gif handles POST /api/v1/assets/gif.
func (h *Handler) gif(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if h.d.Assets == nil {
		jsonErr(w, http.StatusServiceUnavailable, "asset generation disabled")
		return
	}
	var req assets.GifRequest
	if err := decodeBody(r, &req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid body")
		return
	}
	res, err := h.d.Assets.Gif(r.Context(), req)
	switch {
	case errors.Is(err, assets.ErrNoFrames), errors.Is(err, assets.ErrBadSize):
		jsonErr(w, http.StatusBadRequest, err.Error())
	case err != nil:
		slog.Warn("api: gif generation failed", "err", err)
		jsonErr(w, http.StatusUnprocessableEntity, err.Error())
	default:
		jsonResp(w, http.StatusOK, res)
	}
}

// --- helpers ----------------------------------------------------------------

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

func decodeBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

// readParams decodes an optional JSON object body. An empty body yields nil.
func readParams(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var params map[string]any
	if err := decodeBody(r, &params); err != nil && !errors.Is(err, io.EOF) {
		jsonErr(w, http.StatusBadRequest, "invalid body")
		return nil, false
	}
	return params, true
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
