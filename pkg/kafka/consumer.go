package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	applogger "FinSignal/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageHandler handles one message payload.
type MessageHandler interface {
	Handle(ctx context.Context, topic string, key, value []byte) error
}

// HandlerFunc adapts a function to MessageHandler.
type HandlerFunc func(ctx context.Context, topic string, key, value []byte) error

func (f HandlerFunc) Handle(ctx context.Context, topic string, key, value []byte) error {
	return f(ctx, topic, key, value)
}

// Consumer reads a set of topics in one consumer group and fans messages out
// to a worker pool. Offsets are committed after handling, or after the retry
// budget is spent so a poison message cannot stall a partition.
type Consumer struct {
	cfg      *ConsumerConfig
	log      *applogger.Logger
	readers  map[string]*kafka.Reader
	handlers map[string]MessageHandler
	msgChan  chan *message
	stopChan chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

type message struct {
	reader *kafka.Reader
	km     kafka.Message
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(log *applogger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:     "finsignal",
		WorkerCount: 1,
		BufferSize:  100,
		RetryMax:    3,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  2 * time.Second,
		MinBytes:    1,
		MaxBytes:    10e6,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if log == nil {
		log = applogger.Nop()
	}

	initConsumerMetrics()
	return &Consumer{
		cfg:      cfg,
		log:      log,
		readers:  make(map[string]*kafka.Reader),
		handlers: make(map[string]MessageHandler),
		msgChan:  make(chan *message, cfg.BufferSize),
		stopChan: make(chan struct{}),
	}, nil
}

// Subscribe registers handler for topic. Must be called before Start.
func (c *Consumer) Subscribe(topic string, handler MessageHandler) {
	if _, ok := c.handlers[topic]; ok {
		c.log.Warn("kafka handler already registered", applogger.String("topic", topic))
		return
	}
	c.handlers[topic] = handler
}

// Start opens one reader per subscribed topic and starts the workers.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return errors.New("no topics subscribed")
	}
	for topic := range c.handlers {
		c.readers[topic] = kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.cfg.Brokers,
			Topic:    topic,
			GroupID:  c.cfg.GroupID,
			MinBytes: c.cfg.MinBytes,
			MaxBytes: c.cfg.MaxBytes,
		})
	}

	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.worker()
	}
	for topic, reader := range c.readers {
		c.wg.Add(1)
		go c.read(topic, reader)
	}

	c.log.Info("kafka consumer started",
		applogger.Int("topics", len(c.readers)),
		applogger.Int("workers", c.cfg.WorkerCount),
	)
	return nil
}

// Stop stops the Kafka consumer gracefully.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		close(c.stopChan)
		for topic, reader := range c.readers {
			if err := reader.Close(); err != nil {
				c.log.Warn("close kafka reader", applogger.String("topic", topic), applogger.Error(err))
			}
		}

		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-ctx.Done():
			stopErr = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
		case <-done:
			c.log.Info("kafka consumer stopped")
		}
	})
	return stopErr
}

func (c *Consumer) read(topic string, reader *kafka.Reader) {
	defer c.wg.Done()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-c.stopChan
		cancel()
	}()

	for {
		km, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("kafka fetch failed", applogger.String("topic", topic), applogger.Error(err))
			time.Sleep(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, 1))
			continue
		}
		select {
		case c.msgChan <- &message{reader: reader, km: km}:
			consumerQueueDepth.WithLabelValues(topic).Set(float64(len(c.msgChan)))
		case <-c.stopChan:
			return
		}
	}
}

func (c *Consumer) worker() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stopChan:
			return
		case msg := <-c.msgChan:
			c.process(msg)
		}
	}
}

func (c *Consumer) process(msg *message) {
	topic := msg.km.Topic
	handler, ok := c.handlers[topic]
	if !ok {
		return
	}

	start := time.Now()
	var err error
	for attempt := 1; ; attempt++ {
		err = c.safeHandle(handler, msg.km)
		if err == nil || attempt > c.cfg.RetryMax {
			break
		}
		select {
		case <-time.After(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)):
		case <-c.stopChan:
			return
		}
	}

	result := "ok"
	if err != nil {
		result = "error"
		c.log.Error("kafka message dropped",
			applogger.String("topic", topic),
			applogger.Int("partition", msg.km.Partition),
			applogger.Int64("offset", msg.km.Offset),
			applogger.Error(err),
		)
	}
	consumerMessages.WithLabelValues(topic, result).Inc()
	consumerHandleLatency.WithLabelValues(topic).Observe(time.Since(start).Seconds())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if cerr := msg.reader.CommitMessages(ctx, msg.km); cerr != nil {
		c.log.Warn("kafka commit failed", applogger.String("topic", topic), applogger.Error(cerr))
	}
}

func (c *Consumer) safeHandle(h MessageHandler, km kafka.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in handler: %v", r)
		}
	}()
	return h.Handle(context.Background(), km.Topic, km.Key, km.Value)
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	if attempt < 1 {
		attempt = 1
	}
	exp := max
	if attempt < 32 {
		if e := min * time.Duration(1<<uint(attempt-1)); e > 0 && e < max {
			exp = e
		}
	}
	// jitter up to 50%
	if half := int64(exp) / 2; half > 0 {
		return exp - time.Duration(rand.Int63n(half))
	}
	return exp
}

var (
	consumerQueueDepth    *prometheus.GaugeVec
	consumerMessages      *prometheus.CounterVec
	consumerHandleLatency *prometheus.HistogramVec
	consumerOnce          sync.Once
)

func initConsumerMetrics() {
	consumerOnce.Do(func() {
		consumerQueueDepth = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "finsignal_kafka_consumer_queue_depth", Help: "Number of messages waiting in consumer queue"},
			[]string{"topic"},
		)
		consumerMessages = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "finsignal_kafka_consumer_messages_total", Help: "Consumed messages by result"},
			[]string{"topic", "result"},
		)
		consumerHandleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "finsignal_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
	})
}
