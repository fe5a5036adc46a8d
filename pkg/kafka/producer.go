package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// Producer wraps Kafka writer. Messages are hashed by key so every symbol
// keeps its order within a partition.
type Producer struct {
	writer *kafka.Writer
	comp   string
}

// NewProducer creates a new Kafka producer.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := &ProducerConfig{
		RequiredAcks: 1,
		Compression:  "snappy",
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		BatchSize:    100,
		BatchBytes:   1048576,
		BatchTimeout: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:  parseCompression(cfg.Compression),
		MaxAttempts:  cfg.MaxAttempts,
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		BatchSize:    cfg.BatchSize,
		BatchBytes:   int64(cfg.BatchBytes),
		BatchTimeout: cfg.BatchTimeout,
		Async:        cfg.Async,
	}

	initProducerMetrics()
	return &Producer{writer: writer, comp: cfg.Compression}, nil
}

// Publish encodes value (raw bytes, string or JSON) and sends it to topic.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	return p.PublishBatch(ctx, topic, []Message{{Key: key, Value: value}})
}

// PublishBatch sends multiple messages to the specified topic.
func (p *Producer) PublishBatch(ctx context.Context, topic string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}

	start := time.Now()
	msgs := make([]kafka.Message, 0, len(messages))
	var totalBytes int64
	for _, m := range messages {
		v, err := encode(m.Value)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{Topic: topic, Key: m.Key, Value: v, Time: start})
		totalBytes += int64(len(v))
	}

	err := p.writer.WriteMessages(ctx, msgs...)
	observeProducer(topic, p.comp, totalBytes, len(messages), time.Since(start), err)
	return err
}

// Close flushes pending writes and closes the producer.
func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// Message represents a Kafka message.
type Message struct {
	Key   []byte
	Value interface{}
}

func encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshal value: %w", err)
		}
		return b, nil
	}
}

func parseCompression(s string) kafka.Compression {
	switch s {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return 0
	}
}

var (
	producerMsgsTotal   *prometheus.CounterVec
	producerBytesTotal  *prometheus.CounterVec
	producerLatencyHist *prometheus.HistogramVec
	producerOnce        sync.Once
)

func initProducerMetrics() {
	producerOnce.Do(func() {
		producerMsgsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsignal_kafka_producer_messages_total",
				Help: "Total messages published to Kafka",
			},
			[]string{"topic", "compression", "result"},
		)
		producerBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsignal_kafka_producer_bytes_total",
				Help: "Total payload bytes published",
			},
			[]string{"topic", "compression"},
		)
		producerLatencyHist = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finsignal_kafka_producer_publish_seconds",
				Help:    "Publish latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"topic"},
		)
	})
}

func observeProducer(topic, comp string, bytes int64, count int, dur time.Duration, err error) {
	if producerMsgsTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	producerMsgsTotal.WithLabelValues(topic, comp, result).Add(float64(count))
	producerBytesTotal.WithLabelValues(topic, comp).Add(float64(bytes))
	producerLatencyHist.WithLabelValues(topic).Observe(dur.Seconds())
}
