package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"FinSignal/internal/domain/models"
)

const (
	fallbackTargetPct   = 0.3
	targetToMinutes     = 20.0
	recommendTFPrimary  = "5m"
	recommendTFFallback = "1m"
)

// RecommendationConfig bounds the mapper's decision and duration.
type RecommendationConfig struct {
	Threshold  float64
	MinMinutes int
	MaxMinutes int
}

// DefaultRecommendationConfig returns threshold 0.65 and a 3 to 20 minute window.
func DefaultRecommendationConfig() RecommendationConfig {
	return RecommendationConfig{Threshold: 0.65, MinMinutes: 3, MaxMinutes: 20}
}

// Recommend maps the 1m, 5m and 10m signals of one instrument to an action.
// A missing signal counts as zero confidence and matches no direction.
// predicted is the reversal-time estimate in minutes when one is available;
// a non-finite estimate or target is ignored.
func Recommend(cfg RecommendationConfig, signals map[string]*models.SignalOutput, predicted *float64, now time.Time) models.Recommendation {
	s1, s5, s10 := signals["1m"], signals["5m"], signals["10m"]
	avg := (confidenceOf(s5) + confidenceOf(s10)) / 2

	rec := models.Recommendation{
		Action:    models.ActionHold,
		Timeframe: recommendTFPrimary,
		Timestamp: now,
	}
	switch {
	case isDirection(s10, models.DirectionUp) && isDirection(s5, models.DirectionUp) && avg >= cfg.Threshold:
		rec.Action = models.ActionBuy
	case isDirection(s10, models.DirectionDown) && isDirection(s5, models.DirectionDown) && avg >= cfg.Threshold:
		rec.Action = models.ActionSell
	case s1 != nil && s1.Confidence >= cfg.Threshold:
		rec.Action = models.ActionSell
		if s1.Direction == models.DirectionUp {
			rec.Action = models.ActionBuy
		}
		rec.Timeframe = recommendTFFallback
	}

	minutes := 0.0
	if predicted != nil && isFinite(*predicted) {
		minutes = *predicted
	} else {
		target := fallbackTargetPct
		if s5 != nil && s5.TargetPct != nil && *s5.TargetPct != 0 && isFinite(*s5.TargetPct) {
			target = *s5.TargetPct
		}
		minutes = target * targetToMinutes
	}
	rec.DurationMinutes = int(clamp(minutes, float64(cfg.MinMinutes), float64(cfg.MaxMinutes)))
	rec.ConfidencePct = Round(avg*100, 1)
	return rec
}

func confidenceOf(s *models.SignalOutput) float64 {
	if s == nil || !isFinite(s.Confidence) {
		return 0
	}
	return s.Confidence
}

func isDirection(s *models.SignalOutput, d models.Direction) bool {
	return s != nil && s.Direction == d
}

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
