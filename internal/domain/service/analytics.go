package service

import "FinSignal/internal/domain/models"

// ReversalPredictor estimates bars until the current short-term move flips.
// It returns models.ErrInsufficientData or models.ErrModelFault when no
// estimate can be given.
type ReversalPredictor interface {
	FitPredictMinutes(candles []models.Candle) (float64, error)
}

// NextMovePredictor estimates P(next close > current close).
type NextMovePredictor interface {
	FitPredictProb(candles []models.Candle) (float64, error)
}
