package learning

import (
	"fmt"
	"math"

	"FinSignal/internal/domain/models"
	"FinSignal/internal/domain/service"
	"FinSignal/internal/services/features"
)

// ReversalConfig parameterises the reversal-time regressor.
type ReversalConfig struct {
	MaxForward int
	MinRows    int
	RSILength  int
	ATRLength  int
	Boosting   GBRTConfig
}

func DefaultReversalConfig() ReversalConfig {
	return ReversalConfig{MaxForward: 30, MinRows: 120, RSILength: 14, ATRLength: 14, Boosting: DefaultGBRTConfig()}
}

// ReversalTimer predicts how many bars remain before the short-term move
// flips. Each call refits from scratch on the supplied window; the instance
// only carries the last fitted ensemble and must not be shared between
// concurrent callers.
type ReversalTimer struct {
	cfg   ReversalConfig
	model *GBRT
}

func NewReversalTimer(cfg ReversalConfig) *ReversalTimer {
	return &ReversalTimer{cfg: cfg, model: NewGBRT(cfg.Boosting)}
}

// ReversalLabels returns, for each bar i, the first forward offset at which
// the price change relative to bar i no longer has the sign of the move into
// bar i (a flat move, and the first bar, count as up). Bars with no flip
// inside maxForward, including the last bar, are censored at maxForward.
func ReversalLabels(closes []float64, maxForward int) []float64 {
	n := len(closes)
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(maxForward)
	}
	for i := 0; i < n-1; i++ {
		cur := 1
		if i > 0 {
			cur = trendSign(closes[i] - closes[i-1])
		}
		for fwd := 1; fwd <= maxForward && i+fwd < n; fwd++ {
			if moveSign(closes[i+fwd]-closes[i]) != cur {
				out[i] = float64(fwd)
				break
			}
		}
	}
	return out
}

// FitPredictMinutes refits on all bars but the last and predicts the last.
func (r *ReversalTimer) FitPredictMinutes(candles []models.Candle) (minutes float64, err error) {
	if len(candles)-1 < r.cfg.MinRows {
		return 0, fmt.Errorf("reversal timer: %d rows, need %d: %w", len(candles)-1, r.cfg.MinRows, models.ErrInsufficientData)
	}
	defer func() {
		if rec := recover(); rec != nil {
			minutes, err = 0, fmt.Errorf("reversal timer: %v: %w", rec, models.ErrModelFault)
		}
	}()

	X := features.ReversalMatrix(candles, r.cfg.RSILength, r.cfg.ATRLength)
	y := ReversalLabels(closesOf(candles), r.cfg.MaxForward)
	last := len(X) - 1
	if err := r.model.Fit(X[:last], y[:last]); err != nil {
		return 0, fmt.Errorf("reversal timer: %v: %w", err, models.ErrModelFault)
	}
	pred := r.model.Predict(X[last])
	if !finite(pred) {
		return 0, fmt.Errorf("reversal timer: prediction %v: %w", pred, models.ErrModelFault)
	}
	return math.Max(1, math.Min(float64(r.cfg.MaxForward), pred)), nil
}

func trendSign(v float64) int {
	if v < 0 {
		return -1
	}
	return 1
}

func moveSign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func closesOf(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

var _ service.ReversalPredictor = (*ReversalTimer)(nil)
