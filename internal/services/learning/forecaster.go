package learning

import (
	"FinSignal/internal/domain/models"
)

// Forecast holds the learned predictions for one instrument. A nil field
// means the predictor was unavailable; the matching error says why.
type Forecast struct {
	PredictedMinutes  *float64
	NextUpProbability *float64
	ReversalErr       error
	NextMoveErr       error
}

// Forecaster owns the per-instrument learned models.
type Forecaster struct {
	reversal *Arena[*ReversalTimer]
	nextMove *Arena[*NextMove]
	lookback int
}

// NewForecaster builds arenas for both predictors. lookback bounds the
// window (most recent bars) each fit sees; zero means the whole input.
func NewForecaster(rc ReversalConfig, nc NextMoveConfig, lookback int) *Forecaster {
	return &Forecaster{
		reversal: NewArena(func(string) *ReversalTimer { return NewReversalTimer(rc) }),
		nextMove: NewArena(func(string) *NextMove { return NewNextMove(nc) }),
		lookback: lookback,
	}
}

// Forecast refits both models for symbol on candles and predicts the last bar.
func (f *Forecaster) Forecast(symbol string, candles []models.Candle) Forecast {
	if f.lookback > 0 && len(candles) > f.lookback {
		candles = candles[len(candles)-f.lookback:]
	}
	var out Forecast
	out.ReversalErr = f.reversal.With(symbol, func(m *ReversalTimer) error {
		v, err := m.FitPredictMinutes(candles)
		if err == nil {
			out.PredictedMinutes = &v
		}
		return err
	})
	out.NextMoveErr = f.nextMove.With(symbol, func(m *NextMove) error {
		v, err := m.FitPredictProb(candles)
		if err == nil {
			out.NextUpProbability = &v
		}
		return err
	})
	return out
}

// Retain evicts models of symbols outside universe and returns them.
func (f *Forecaster) Retain(universe []string) []string {
	evicted := f.reversal.Retain(universe)
	f.nextMove.Retain(universe)
	return evicted
}

// Tracked returns the symbols that currently hold a model.
func (f *Forecaster) Tracked() []string { return f.reversal.Keys() }
