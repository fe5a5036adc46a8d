package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment    string               `yaml:"environment" default:"development" validate:"required"`
	Server         ServerConfig         `yaml:"server"`
	Metrics        MetricsConfig        `yaml:"metrics"`
	Logging        LoggingConfig        `yaml:"logging"`
	Poller         PollerConfig         `yaml:"poller"`
	Source         SourceConfig         `yaml:"source"`
	Engine         EngineConfig         `yaml:"engine"`
	Recommendation RecommendationConfig `yaml:"recommendation"`
	Models         ModelsConfig         `yaml:"models"`
	Sinks          SinksConfig          `yaml:"sinks"`
	Kafka          KafkaConfig          `yaml:"kafka"`
	ClickHouse     ClickHouseConfig     `yaml:"clickhouse"`
	Redis          RedisConfig          `yaml:"redis"`
	WebSocket      WebSocketConfig      `yaml:"websocket"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8000" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	CORS            bool          `yaml:"cors" default:"true"`
	RateLimit       struct {
		Rate  float64 `yaml:"rate" default:"20"`
		Burst int     `yaml:"burst" default:"40"`
	} `yaml:"rate_limit"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	Output string `yaml:"output" default:"stdout"`
}

// PollerConfig drives the per-cycle computation over the instrument universe.
type PollerConfig struct {
	Interval    time.Duration `yaml:"interval" default:"3s"`
	Symbols     []string      `yaml:"symbols" validate:"required,min=1,dive,required"`
	Lookback1m  int           `yaml:"lookback_1m" default:"900" validate:"gte=5"`
	Lookback5m  int           `yaml:"lookback_5m" default:"200" validate:"gte=5"`
	Lookback10m int           `yaml:"lookback_10m" default:"120" validate:"gte=5"`
	Workers     int           `yaml:"workers" default:"4" validate:"gte=1"`
	Timeout     time.Duration `yaml:"timeout" default:"10s"`
}

type SourceConfig struct {
	// Type selects where candles and quotes come from: "clickhouse" or "kafka".
	Type string `yaml:"type" default:"kafka" validate:"oneof=kafka clickhouse"`
	// BufferSize bounds the in-memory candle history per symbol and timeframe.
	BufferSize int `yaml:"buffer_size" default:"1000" validate:"gte=10"`
}

type EngineConfig struct {
	RSILength        int     `yaml:"rsi_length" default:"14" validate:"gte=1"`
	ATRLength        int     `yaml:"atr_length" default:"14" validate:"gte=1"`
	ADXLength        int     `yaml:"adx_length" default:"14" validate:"gte=1"`
	ATRTargetMult    float64 `yaml:"atr_target_mult" default:"0.5" validate:"gt=0"`
	VolumeBoomMult   float64 `yaml:"volume_boom_mult" default:"1.3" validate:"gt=0"`
	DepthLevels      int     `yaml:"depth_levels" default:"20" validate:"gte=1"`
	SwingSensitivity int     `yaml:"swing_sensitivity" default:"3" validate:"gte=1"`
	FusionVariant    string  `yaml:"fusion_variant" default:"microstructure" validate:"oneof=microstructure basic"`
	PressureLookback int     `yaml:"pressure_lookback" default:"5" validate:"gte=1"`
}

type RecommendationConfig struct {
	Threshold  float64 `yaml:"threshold" default:"0.65" validate:"gte=0,lte=1"`
	MinMinutes int     `yaml:"min_minutes" default:"3" validate:"gte=1"`
	MaxMinutes int     `yaml:"max_minutes" default:"20" validate:"gtefield=MinMinutes"`
}

type ModelsConfig struct {
	Enabled    bool `yaml:"enabled" default:"true"`
	MinRows    int  `yaml:"min_rows" default:"120" validate:"gte=2"`
	MinSamples int  `yaml:"min_samples" default:"100" validate:"gte=2"`
	MaxForward int  `yaml:"max_forward" default:"30" validate:"gte=1"`
	Lookback   int  `yaml:"lookback" default:"300" validate:"gte=10"`
	Trees      int  `yaml:"trees" default:"100" validate:"gte=1"`
}

// SinksConfig toggles the delivery targets of each cycle.
type SinksConfig struct {
	Kafka      bool `yaml:"kafka"`
	ClickHouse bool `yaml:"clickhouse"`
	Redis      bool `yaml:"redis"`
}

type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	SnapshotTopic string   `yaml:"snapshot_topic" default:"signals.snapshots"`
	SummaryTopic  string   `yaml:"summary_topic" default:"signals.summary"`
	MarketTopics  []string `yaml:"market_topics"`
	RequiredAcks  int      `yaml:"required_acks" default:"1"`
	Compression   string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
	Producer      struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		Linger       time.Duration `yaml:"linger" default:"50ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID    string        `yaml:"group_id" default:"finsignal"`
		Workers    int           `yaml:"workers" default:"2"`
		BufferSize int           `yaml:"buffer_size" default:"1000"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
		MinBytes   int           `yaml:"min_bytes" default:"1"`
		MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
	} `yaml:"consumer"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"default"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	CandleTable      string        `yaml:"candle_table" default:"candles_1m"`
	SignalTable      string        `yaml:"signal_table" default:"signal_outputs"`
	SummaryTable     string        `yaml:"summary_table" default:"market_summaries"`
}

type RedisConfig struct {
	Addr      string        `yaml:"addr" default:"localhost:6379"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix" default:"finsignal"`
	TTL       time.Duration `yaml:"ttl" default:"5m"`
}

type WebSocketConfig struct {
	Enabled        bool          `yaml:"enabled" default:"true"`
	Path           string        `yaml:"path" default:"/ws"`
	SendBuffer     int           `yaml:"send_buffer" default:"64"`
	WriteTimeout   time.Duration `yaml:"write_timeout" default:"10s"`
	PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	MaxMessageSize int64         `yaml:"max_message_size" default:"4096"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file, fills defaults and validates.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, fills defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("SYMBOLS"); v != "" {
		symbols := splitList(v)
		for i := range symbols {
			symbols[i] = strings.ToUpper(symbols[i])
		}
		c.Poller.Symbols = symbols
	}
	if v := getenv("SOURCE"); v != "" {
		c.Source.Type = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks tags and the cross-section rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Source.Type == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when source.type is 'kafka'")
	}
	if c.Source.Type == "kafka" && len(c.Kafka.MarketTopics) == 0 {
		return fmt.Errorf("kafka.market_topics is required when source.type is 'kafka'")
	}
	if c.Sinks.Kafka && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when sinks.kafka is enabled")
	}
	if c.Models.MaxForward < c.Recommendation.MinMinutes {
		return fmt.Errorf("models.max_forward (%d) must be >= recommendation.min_minutes (%d)", c.Models.MaxForward, c.Recommendation.MinMinutes)
	}
	return nil
}
