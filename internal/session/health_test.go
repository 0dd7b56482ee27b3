package session

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestScoreHealth_Empty(t *testing.T) {
	h := ScoreHealth(MetricSummary{}, 60)
	if h.State != StateUnknown || h.Score != 0 {
		t.Errorf("got %+v, want unknown", h)
	}
}

func TestScoreHealth_Perfect(t *testing.T) {
	h := ScoreHealth(MetricSummary{
		Samples:      10,
		AvgFPS:       60,
		MinFPS:       60,
		MaxFPS:       60,
		AvgFrameTime: 1.0 / 60,
	}, 60)
	if !almostEqual(h.Score, 100) {
		t.Errorf("score: got %v, want 100", h.Score)
	}
	if h.State != StateHealthy {
		t.Errorf("state: got %q, want healthy", h.State)
	}
}

func TestScoreHealth_Factors(t *testing.T) {
	tests := []struct {
		name  string
		sum   MetricSummary
		score float64
		state string
	}{
		{
			name:  "frame time at twice the budget",
			sum:   MetricSummary{Samples: 1, MinFPS: 30, MaxFPS: 30, AvgFrameTime: 2.0 / 60},
			score: 70, // drop 50 + frame time 0 + stability 20
			state: StateDegraded,
		},
		{
			name:  "half the samples dropped",
			sum:   MetricSummary{Samples: 4, MinFPS: 20, MaxFPS: 60, AvgFrameTime: 1.0 / 60, DroppedPct: 50},
			score: 25 + 30 + 20.0/3,
			state: StateDegraded,
		},
		{
			name:  "everything dropped and slow",
			sum:   MetricSummary{Samples: 2, MinFPS: 10, MaxFPS: 20, AvgFrameTime: 3.0 / 60, DroppedPct: 100},
			score: 10,
			state: StateCritical,
		},
		{
			name:  "slightly unstable",
			sum:   MetricSummary{Samples: 4, MinFPS: 45, MaxFPS: 60, AvgFrameTime: 1.0 / 60},
			score: 50 + 30 + 15,
			state: StateHealthy,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := ScoreHealth(tc.sum, 60)
			if !almostEqual(h.Score, tc.score) {
				t.Errorf("score: got %v, want %v", h.Score, tc.score)
			}
			if h.State != tc.state {
				t.Errorf("state: got %q, want %q", h.State, tc.state)
			}
		})
	}
}

func TestScoreHealth_DefaultTarget(t *testing.T) {
	sum := MetricSummary{Samples: 1, MinFPS: 60, MaxFPS: 60, AvgFrameTime: 1.0 / 60}
	if a, b := ScoreHealth(sum, 0), ScoreHealth(sum, DefaultTargetFPS); a != b {
		t.Errorf("target 0 should use the default: got %+v vs %+v", a, b)
	}
}
