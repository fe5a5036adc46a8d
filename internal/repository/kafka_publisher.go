package repository

import (
	"context"
	"fmt"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
)

// Publisher is the subset of pkg/kafka.Producer the sink needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaSnapshotSink publishes snapshots keyed by symbol and summaries keyed
// by cycle id as JSON.
type KafkaSnapshotSink struct {
	pub           Publisher
	snapshotTopic string
	summaryTopic  string
}

func NewKafkaSnapshotSink(pub Publisher, snapshotTopic, summaryTopic string) *KafkaSnapshotSink {
	return &KafkaSnapshotSink{pub: pub, snapshotTopic: snapshotTopic, summaryTopic: summaryTopic}
}

var _ domrepo.SnapshotSink = (*KafkaSnapshotSink)(nil)

func (k *KafkaSnapshotSink) PublishSnapshot(ctx context.Context, s *models.InstrumentSnapshot) error {
	if err := k.pub.Publish(ctx, k.snapshotTopic, []byte(s.Symbol), s); err != nil {
		return fmt.Errorf("publish snapshot %s: %w", s.Symbol, err)
	}
	return nil
}

func (k *KafkaSnapshotSink) PublishSummary(ctx context.Context, s *models.MarketSummary) error {
	if err := k.pub.Publish(ctx, k.summaryTopic, []byte(s.CycleID), s); err != nil {
		return fmt.Errorf("publish summary: %w", err)
	}
	return nil
}
