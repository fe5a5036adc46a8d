package learning

import (
	"fmt"

	"FinSignal/internal/domain/models"
	"FinSignal/internal/domain/service"
	"FinSignal/internal/services/features"
)

// NextMoveConfig parameterises the next-bar classifier.
type NextMoveConfig struct {
	MinSamples int
	Logistic   LogisticConfig
}

func DefaultNextMoveConfig() NextMoveConfig {
	return NextMoveConfig{MinSamples: 100, Logistic: DefaultLogisticConfig()}
}

// NextMove estimates the probability that the next close is above the
// current one. Like ReversalTimer it refits on every call.
type NextMove struct {
	cfg   NextMoveConfig
	model *Logistic
}

func NewNextMove(cfg NextMoveConfig) *NextMove {
	return &NextMove{cfg: cfg, model: NewLogistic(cfg.Logistic)}
}

// FitPredictProb trains on every bar with a known successor and scores the
// last bar. When all training labels agree it returns 0.5 without fitting.
func (m *NextMove) FitPredictProb(candles []models.Candle) (prob float64, err error) {
	if len(candles) < m.cfg.MinSamples+2 {
		return 0, fmt.Errorf("next move: %d rows, need %d: %w", len(candles), m.cfg.MinSamples+2, models.ErrInsufficientData)
	}
	defer func() {
		if rec := recover(); rec != nil {
			prob, err = 0, fmt.Errorf("next move: %v: %w", rec, models.ErrModelFault)
		}
	}()

	last := len(candles) - 1
	y := make([]float64, last)
	ups := 0
	for i := 0; i < last; i++ {
		if candles[i+1].Close > candles[i].Close {
			y[i] = 1
			ups++
		}
	}
	if ups == 0 || ups == last {
		return 0.5, nil
	}

	X := features.NextMoveMatrix(candles)
	if err := m.model.Fit(X[:last], y); err != nil {
		return 0, fmt.Errorf("next move: %v: %w", err, models.ErrModelFault)
	}
	p := m.model.PredictProb(X[last])
	if !finite(p) {
		return 0, fmt.Errorf("next move: probability %v: %w", p, models.ErrModelFault)
	}
	return p, nil
}

var _ service.NextMovePredictor = (*NextMove)(nil)
