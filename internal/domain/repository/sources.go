package repository

import (
	"context"
	"time"

	"FinSignal/internal/domain/models"
)

// CandleSource provides read-only access to ordered candle windows.
type CandleSource interface {
	GetCandles(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) ([]models.Candle, error)
	GetLatestNCandles(ctx context.Context, symbol string, n int, tf Timeframe) ([]models.Candle, error)
}

// QuoteSource provides the latest book state. Both methods return
// models.ErrNotFound when nothing is known for the symbol.
type QuoteSource interface {
	TopOfBook(ctx context.Context, symbol string) (models.TopOfBook, error)
	Depth(ctx context.Context, symbol string) (models.DepthSnapshot, error)
}
