package repository

import (
	"context"
	"errors"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
)

// FanoutSink delivers every record to all sinks in order. A failing sink
// does not stop delivery to the rest; errors are joined.
type FanoutSink []domrepo.SnapshotSink

var _ domrepo.SnapshotSink = FanoutSink(nil)

func (f FanoutSink) PublishSnapshot(ctx context.Context, s *models.InstrumentSnapshot) error {
	var errs []error
	for _, sink := range f {
		if err := sink.PublishSnapshot(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f FanoutSink) PublishSummary(ctx context.Context, s *models.MarketSummary) error {
	var errs []error
	for _, sink := range f {
		if err := sink.PublishSummary(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
