package repository

import (
	"context"

	"FinSignal/internal/domain/models"
)

// SnapshotSink receives the records of each cycle.
type SnapshotSink interface {
	PublishSnapshot(ctx context.Context, s *models.InstrumentSnapshot) error
	PublishSummary(ctx context.Context, s *models.MarketSummary) error
}

// SnapshotStore serves the latest delivered records.
type SnapshotStore interface {
	SnapshotSink
	LatestSnapshot(ctx context.Context, symbol string) (*models.InstrumentSnapshot, error)
	LatestSnapshots(ctx context.Context) ([]*models.InstrumentSnapshot, error)
	LatestSummary(ctx context.Context) (*models.MarketSummary, error)
}

// MarketDataWriter accepts market data pushed by the acquisition side.
type MarketDataWriter interface {
	PutCandle(symbol string, c models.Candle)
	PutTopOfBook(symbol string, b models.TopOfBook)
	PutDepth(symbol string, d models.DepthSnapshot)
}

type Metrics interface {
	RecordSignal(symbol, tf string, dir models.Direction, confidence float64)
	RecordUnavailable(stage string)
	RecordRecommendation(action models.Action)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
