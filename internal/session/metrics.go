package session

import (
	"time"

	"github.com/kyonru/feather-companion/pkg/types"
)

// MetricSummary aggregates the samples inside a time window.
type MetricSummary struct {
	Samples      int     `json:"samples"`
	AvgFPS       float64 `json:"avg_fps"`
	MinFPS       float64 `json:"min_fps"`
	MaxFPS       float64 `json:"max_fps"`
	AvgFrameTime float64 `json:"avg_frame_time"`
	LastMemory   float64 `json:"last_memory"`
	// DroppedPct is the share of samples whose FPS fell below half of MaxFPS.
	DroppedPct float64 `json:"dropped_pct"`
}

// AppendMetric appends m to the rolling history, evicting the oldest sample
// once the history cap is reached.
func (s *Store) AppendMetric(m types.PerformanceMetric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.metrics) >= s.historyCap {
		s.metrics = s.metrics[len(s.metrics)-s.historyCap+1:]
	}
	s.metrics = append(s.metrics, MetricSample{At: s.now(), Metric: m})
}

// Metrics returns a copy of the full metric history, oldest first.
func (s *Store) Metrics() []MetricSample {
	return s.MetricsSince(0)
}

// MetricsSince returns the samples received within window of now, oldest
// first. A window <= 0 returns everything.
func (s *Store) MetricsSince(window time.Duration) []MetricSample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if window > 0 {
		cutoff := s.now().Add(-window)
		for start < len(s.metrics) && s.metrics[start].At.Before(cutoff) {
			start++
		}
	}
	out := make([]MetricSample, len(s.metrics)-start)
	copy(out, s.metrics[start:])
	return out
}

// LatestMetric returns the most recent sample, if any.
func (s *Store) LatestMetric() (MetricSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.metrics) == 0 {
		return MetricSample{}, false
	}
	return s.metrics[len(s.metrics)-1], true
}

// Summary aggregates the samples within window (see MetricsSince).
func (s *Store) Summary(window time.Duration) MetricSummary {
	return Summarize(s.MetricsSince(window))
}

// Summarize aggregates samples. An empty input yields a zero summary.
func Summarize(samples []MetricSample) MetricSummary {
	var out MetricSummary
	if len(samples) == 0 {
		return out
	}

	var fpsSum, ftSum float64
	out.MinFPS = samples[0].Metric.FPS
	for _, sm := range samples {
		m := sm.Metric
		fpsSum += m.FPS
		ftSum += m.FrameTime
		if m.FPS < out.MinFPS {
			out.MinFPS = m.FPS
		}
		if m.FPS > out.MaxFPS {
			out.MaxFPS = m.FPS
		}
	}

	n := float64(len(samples))
	out.Samples = len(samples)
	out.AvgFPS = fpsSum / n
	out.AvgFrameTime = ftSum / n
	out.LastMemory = samples[len(samples)-1].Metric.Memory

	if out.MaxFPS > 0 {
		var dropped int
		for _, sm := range samples {
			if sm.Metric.FPS < out.MaxFPS/2 {
				dropped++
			}
		}
		out.DroppedPct = float64(dropped) / n * 100
	}
	return out
}
