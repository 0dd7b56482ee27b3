package api

import (
	"log/slog"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/kyonru/feather-companion/internal/session"
	"github.com/kyonru/feather-companion/pkg/types"
)

const healthWindow = 30 * time.Second

// metrics returns GET /metrics: the latest performance sample and session
// state as Prometheus text exposition, for scraping by an existing stack.
func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	w.Header().Set("Content-Type", string(format))
	enc := expfmt.NewEncoder(w, format)
	for _, mf := range h.families() {
		if err := enc.Encode(mf); err != nil {
			slog.Warn("api: encode metric family failed", "family", mf.GetName(), "err", err)
			return
		}
	}
}

func (h *Handler) families() []*dto.MetricFamily {
	snap := h.d.Store.Snapshot()

	fams := []*dto.MetricFamily{
		gauge("feather_connected", "Whether the Feather server answered the last poll.", boolValue(snap.Connected)),
		gauge("feather_polling_paused", "Whether polling is paused.", boolValue(snap.Paused)),
		gauge("feather_logs_held", "Number of distinct log records held by the companion.", float64(snap.LogCount)),
		gauge("feather_observers", "Number of observed key/values.", float64(len(snap.Observers))),
	}
	if h.d.Assets != nil {
		fams = append(fams, counter("feather_assets_generated_total", "Animated GIFs generated.", float64(h.d.Assets.Generated())))
	}

	if m, ok := h.d.Store.LatestMetric(); ok {
		fams = append(fams, performanceFamilies(m.Metric)...)
		health := session.ScoreHealth(h.d.Store.Summary(healthWindow), session.DefaultTargetFPS)
		fams = append(fams, gauge("feather_health_score", "Frame health score (0-100) over the last 30s.", health.Score))
	}
	return fams
}

func performanceFamilies(m types.PerformanceMetric) []*dto.MetricFamily {
	return []*dto.MetricFamily{
		gauge("feather_fps", "Frames per second.", m.FPS),
		gauge("feather_frame_time_seconds", "Duration of the last frame.", m.FrameTime),
		gauge("feather_memory_kilobytes", "Lua memory in use.", m.Memory),
		gauge("feather_vsync_enabled", "Whether vsync is enabled.", boolValue(m.VsyncEnabled)),
		gauge("feather_draw_calls", "Draw calls in the last frame.", m.Stats.DrawCalls),
		gauge("feather_draw_calls_batched", "Draw calls saved by batching in the last frame.", m.Stats.DrawCallsBatched),
		gauge("feather_canvas_switches", "Canvas switches in the last frame.", m.Stats.CanvasSwitches),
		gauge("feather_shader_switches", "Shader switches in the last frame.", m.Stats.ShaderSwitches),
		gauge("feather_canvases", "Live canvases.", m.Stats.Canvases),
		gauge("feather_images", "Live images.", m.Stats.Images),
		gauge("feather_fonts", "Live fonts.", m.Stats.Fonts),
		gauge("feather_texture_memory_bytes", "Texture memory in use.", m.Stats.TextureMemory),
		{
			Name: strPtr("feather_system_info"),
			Help: strPtr("Host the game runs on."),
			Type: dto.MetricType_GAUGE.Enum(),
			Metric: []*dto.Metric{{
				Label: []*dto.LabelPair{
					{Name: strPtr("arch"), Value: strPtr(m.SysInfo.Arch)},
					{Name: strPtr("os"), Value: strPtr(m.SysInfo.OS)},
				},
				Gauge: &dto.Gauge{Value: floatPtr(float64(m.SysInfo.CPUCount))},
			}},
		},
	}
}

func gauge(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   strPtr(name),
		Help:   strPtr(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: floatPtr(v)}}},
	}
}

func counter(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   strPtr(name),
		Help:   strPtr(help),
		Type:   dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{{Counter: &dto.Counter{Value: floatPtr(v)}}},
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }
