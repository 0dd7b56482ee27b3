package session

// Weights of the frame health score. They must sum to 1.0.
const (
	weightDrop      = 0.50
	weightFrameTime = 0.30
	weightStability = 0.20
)

// Health states.
const (
	StateHealthy  = "healthy"
	StateDegraded = "degraded"
	StateCritical = "critical"
	StateUnknown  = "unknown"
)

// Thresholds that map a score to a health state.
const (
	ThresholdHealthy  = 85.0
	ThresholdDegraded = 60.0
)

// DefaultTargetFPS is the frame rate the budget is derived from when the
// caller passes none.
const DefaultTargetFPS = 60.0

// Health is a 0-100 summary of how smoothly the game is running.
type Health struct {
	Score float64 `json:"score"`
	State string  `json:"state"`

	// Factor values (each 0-1) the score was built from.
	DropFactor      float64 `json:"drop_factor"`
	FrameTimeFactor float64 `json:"frame_time_factor"`
	StabilityFactor float64 `json:"stability_factor"`
}

// ScoreHealth rates a summary against a target frame rate:
//
//	score = (
//	    (1 - dropped_pct/100)           * 0.50 +
//	    (1 - overrun)                   * 0.30 +   // overrun = (avg_frame_time - budget) / budget, capped at 1
//	    min_fps / max_fps               * 0.20
//	) * 100
//
// An empty summary is "unknown".
func ScoreHealth(sum MetricSummary, targetFPS float64) Health {
	if sum.Samples == 0 {
		return Health{State: StateUnknown}
	}
	if targetFPS <= 0 {
		targetFPS = DefaultTargetFPS
	}

	dropFactor := 1 - clamp01(sum.DroppedPct/100)

	frameTimeFactor := 1.0
	if budget := 1 / targetFPS; sum.AvgFrameTime > budget {
		frameTimeFactor = 1 - clamp01((sum.AvgFrameTime-budget)/budget)
	}

	stabilityFactor := 0.0
	if sum.MaxFPS > 0 {
		stabilityFactor = clamp01(sum.MinFPS / sum.MaxFPS)
	}

	score := (dropFactor*weightDrop +
		frameTimeFactor*weightFrameTime +
		stabilityFactor*weightStability) * 100

	return Health{
		Score:           score,
		State:           stateFromScore(score),
		DropFactor:      dropFactor,
		FrameTimeFactor: frameTimeFactor,
		StabilityFactor: stabilityFactor,
	}
}

func stateFromScore(score float64) string {
	switch {
	case score >= ThresholdHealthy:
		return StateHealthy
	case score >= ThresholdDegraded:
		return StateDegraded
	default:
		return StateCritical
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
