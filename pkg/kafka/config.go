package kafka

import "time"

// ProducerOption configures Producer.
type ProducerOption func(*ProducerConfig)

// ProducerConfig holds producer configuration.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int
	Compression  string
	MaxAttempts  int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	BatchSize    int
	BatchBytes   int
	BatchTimeout time.Duration
	Async        bool
}

// WithBrokers sets Kafka brokers.
func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Brokers = brokers
	}
}

// WithCompression sets compression type.
func WithCompression(compression string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Compression = compression
	}
}

// WithRequiredAcks sets required acknowledgements (-1 = all).
func WithRequiredAcks(acks int) ProducerOption {
	return func(c *ProducerConfig) {
		c.RequiredAcks = acks
	}
}

// WithMaxAttempts sets max retry attempts by the writer.
func WithMaxAttempts(n int) ProducerOption {
	return func(c *ProducerConfig) {
		c.MaxAttempts = n
	}
}

// WithBatching sets batch size, bytes and linger.
func WithBatching(size, bytes int, linger time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.BatchSize = size
		c.BatchBytes = bytes
		c.BatchTimeout = linger
	}
}

// WithTimeouts sets writer read/write timeouts.
func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.WriteTimeout = write
		c.ReadTimeout = read
	}
}

// WithAsync toggles async writes (fire-and-forget).
func WithAsync(async bool) ProducerOption {
	return func(c *ProducerConfig) {
		c.Async = async
	}
}

// ConsumerOption configures Consumer.
type ConsumerOption func(*ConsumerConfig)

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	Brokers     []string
	GroupID     string
	WorkerCount int
	BufferSize  int
	RetryMax    int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	MinBytes    int
	MaxBytes    int
}

// WithConsumerBrokers sets Kafka brokers.
func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.Brokers = brokers
	}
}

// WithConsumerGroupID sets consumer group ID.
func WithConsumerGroupID(groupID string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.GroupID = groupID
	}
}

// WithConsumerWorkers sets number of worker goroutines.
func WithConsumerWorkers(count int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if count > 0 {
			c.WorkerCount = count
		}
	}
}

// WithConsumerRetry configures retry attempts and backoff range.
func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.RetryMax = max
		c.BackoffMin = backoffMin
		c.BackoffMax = backoffMax
	}
}

// WithConsumerFetch sets fetch min/max bytes.
func WithConsumerFetch(minBytes, maxBytes int) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.MinBytes = minBytes
		c.MaxBytes = maxBytes
	}
}

// WithConsumerBufferSize sets the internal channel buffer size.
func WithConsumerBufferSize(n int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if n > 0 {
			c.BufferSize = n
		}
	}
}
