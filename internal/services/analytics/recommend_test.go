package analytics

import (
	"math"
	"testing"

	"FinSignal/internal/domain/models"
)

func sig(dir models.Direction, conf float64) *models.SignalOutput {
	return &models.SignalOutput{Direction: dir, Confidence: conf}
}

func TestRecommendAction(t *testing.T) {
	up, down := models.DirectionUp, models.DirectionDown
	tests := []struct {
		name    string
		signals map[string]*models.SignalOutput
		action  models.Action
		tf      string
		confPct float64
	}{
		{"aligned up", map[string]*models.SignalOutput{"1m": sig(down, 0.9), "5m": sig(up, 0.7), "10m": sig(up, 0.8)}, models.ActionBuy, "5m", 75},
		{"aligned down", map[string]*models.SignalOutput{"5m": sig(down, 0.7), "10m": sig(down, 0.7)}, models.ActionSell, "5m", 70},
		{"aligned but weak falls back to 1m", map[string]*models.SignalOutput{"1m": sig(down, 0.9), "5m": sig(up, 0.5), "10m": sig(up, 0.5)}, models.ActionSell, "1m", 50},
		{"disagreement with strong 1m up", map[string]*models.SignalOutput{"1m": sig(up, 0.65), "5m": sig(up, 0.9), "10m": sig(down, 0.9)}, models.ActionBuy, "1m", 90},
		{"hold", map[string]*models.SignalOutput{"1m": sig(up, 0.3), "5m": sig(up, 0.9), "10m": sig(down, 0.9)}, models.ActionHold, "5m", 90},
		{"missing 10m counts as zero", map[string]*models.SignalOutput{"5m": sig(up, 1)}, models.ActionHold, "5m", 50},
		{"nothing", nil, models.ActionHold, "5m", 0},
		{"nan confidence counts as zero", map[string]*models.SignalOutput{"5m": sig(up, math.NaN()), "10m": sig(up, 1)}, models.ActionHold, "5m", 50},
	}
	cfg := DefaultRecommendationConfig()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Recommend(cfg, tt.signals, nil, t0)
			if rec.Action != tt.action || rec.Timeframe != tt.tf || rec.ConfidencePct != tt.confPct {
				t.Errorf("got %+v, want %s %s %v", rec, tt.action, tt.tf, tt.confPct)
			}
			if !rec.Timestamp.Equal(t0) {
				t.Errorf("timestamp = %v", rec.Timestamp)
			}
		})
	}
}

func TestRecommendDurationBounds(t *testing.T) {
	cfg := DefaultRecommendationConfig()
	withTarget := func(v *float64) map[string]*models.SignalOutput {
		s := sig(models.DirectionUp, 0.5)
		s.TargetPct = v
		return map[string]*models.SignalOutput{"5m": s}
	}
	tests := []struct {
		name      string
		signals   map[string]*models.SignalOutput
		predicted *float64
		want      int
	}{
		{"huge prediction", nil, models.Float(1e9), 20},
		{"tiny prediction", nil, models.Float(0.2), 3},
		{"truncated prediction", nil, models.Float(7.9), 7},
		{"target fallback", withTarget(models.Float(0.5)), nil, 10},
		{"missing target", withTarget(nil), nil, 6},
		{"zero target", withTarget(models.Float(0)), nil, 6},
		{"large target", withTarget(models.Float(4)), nil, 20},
		{"nan prediction uses target", withTarget(models.Float(0.5)), models.Float(math.NaN()), 10},
		{"infinite prediction uses default target", nil, models.Float(math.Inf(1)), 6},
		{"nan target", withTarget(models.Float(math.NaN())), nil, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Recommend(cfg, tt.signals, tt.predicted, t0)
			if rec.DurationMinutes != tt.want {
				t.Errorf("duration = %d, want %d", rec.DurationMinutes, tt.want)
			}
			if rec.DurationMinutes < cfg.MinMinutes || rec.DurationMinutes > cfg.MaxMinutes {
				t.Errorf("duration %d outside [%d,%d]", rec.DurationMinutes, cfg.MinMinutes, cfg.MaxMinutes)
			}
		})
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		v      float64
		places int32
		want   float64
	}{
		{12.345, 1, 12.3},
		{0.25, 1, 0.3},
		{-0.25, 1, -0.3},
		{1.005, 2, 1.01},
	}
	for _, tt := range tests {
		if got := Round(tt.v, tt.places); got != tt.want {
			t.Errorf("Round(%v, %d) = %v, want %v", tt.v, tt.places, got, tt.want)
		}
	}
}
