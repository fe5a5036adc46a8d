package di

import (
	"context"
	"fmt"
	"time"

	"FinSignal/internal/domain/repository"
	"FinSignal/internal/handler/api"
	"FinSignal/internal/handler/ws"
	internalrepo "FinSignal/internal/repository"
	"FinSignal/internal/service/ratelimit"
	"FinSignal/internal/services/analytics"
	"FinSignal/internal/services/learning"
	"FinSignal/internal/usecase"
	"FinSignal/pkg/cache"
	pkgch "FinSignal/pkg/clickhouse"
	"FinSignal/pkg/config"
	xhttp "FinSignal/pkg/http"
	pkgkafka "FinSignal/pkg/kafka"
	applogger "FinSignal/pkg/logger"
	"FinSignal/pkg/metrics"
	"FinSignal/pkg/server"
)

const l1CacheTTL = 5 * time.Second

// ProvideLogger builds the process logger from the logging section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache returns the in-process cache, layered over Redis when the
// redis sink is enabled so other replicas read the same latest records.
func ProvideCache(cfg *config.Config) (cache.Service, func(), error) {
	var svc cache.Service
	if cfg.Sinks.Redis {
		remote, err := cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Redis.Addr),
			cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
			cache.WithRedisPrefix(cfg.Redis.KeyPrefix),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		svc = cache.NewLayeredCache(remote, l1CacheTTL)
	} else {
		svc = cache.NewMemoryCache(cache.WithMemoryMaxSize(10000))
	}
	return svc, func() { _ = svc.Close() }, nil
}

func ProvideSnapshotStore(c cache.Service, cfg *config.Config) *internalrepo.CacheSnapshotStore {
	return internalrepo.NewCacheSnapshotStore(c, cfg.Redis.TTL)
}

func ProvideMarketStore(cfg *config.Config) *internalrepo.MarketStore {
	return internalrepo.NewMarketStore(cfg.Source.BufferSize)
}

// ProvideClickHouseClient connects only when ClickHouse is the candle source
// or a sink; otherwise it returns nil.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if cfg.Source.Type != "clickhouse" && !cfg.Sinks.ClickHouse {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	var schema []string
	if cfg.Source.Type == "clickhouse" {
		schema = append(schema, internalrepo.CandleSchema(cfg.ClickHouse.CandleTable)...)
	}
	if cfg.Sinks.ClickHouse {
		schema = append(schema, internalrepo.SignalSchema(cfg.ClickHouse.SignalTable, cfg.ClickHouse.SummaryTable)...)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, schema); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideCandleSource picks the candle history backend.
func ProvideCandleSource(cfg *config.Config, market *internalrepo.MarketStore, ch *pkgch.Client, l *applogger.Logger) repository.CandleSource {
	if cfg.Source.Type == "clickhouse" && ch != nil {
		return internalrepo.NewCHCandleStore(ch, cfg.ClickHouse.CandleTable, l)
	}
	return market
}

// ProvideQuoteSource serves quotes from the market store in every mode; with
// a ClickHouse candle source it stays empty unless market topics feed it.
func ProvideQuoteSource(market *internalrepo.MarketStore) repository.QuoteSource {
	return market
}

// ProvideKafkaProducer creates a Kafka producer when the kafka sink is on.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Sinks.Kafka {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

func ProvideMarketDataHandler(market *internalrepo.MarketStore, m repository.Metrics) *usecase.MarketDataHandler {
	return usecase.NewMarketDataHandler(market, m)
}

// ProvideKafkaConsumer subscribes the market-data handler to every market
// topic. It returns nil when no topics or brokers are configured.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger, h *usecase.MarketDataHandler) (*pkgkafka.Consumer, error) {
	if len(cfg.Kafka.Brokers) == 0 || len(cfg.Kafka.MarketTopics) == 0 {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	for _, topic := range cfg.Kafka.MarketTopics {
		consumer.Subscribe(topic, h)
	}
	return consumer, nil
}

// ProvideHub returns the websocket hub, or nil when streaming is disabled.
func ProvideHub(cfg *config.Config, store *internalrepo.CacheSnapshotStore, l *applogger.Logger) *ws.Hub {
	if !cfg.WebSocket.Enabled {
		return nil
	}
	return ws.NewHub(ws.Config{
		Path:           cfg.WebSocket.Path,
		SendBuffer:     cfg.WebSocket.SendBuffer,
		WriteTimeout:   cfg.WebSocket.WriteTimeout,
		PingInterval:   cfg.WebSocket.PingInterval,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
	}, store, l)
}

// ProvideSnapshotSink fans every record out to the enabled targets. The
// snapshot store always comes first so the API sees a record no later than
// any stream consumer.
func ProvideSnapshotSink(
	cfg *config.Config,
	store *internalrepo.CacheSnapshotStore,
	hub *ws.Hub,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
) repository.SnapshotSink {
	sinks := internalrepo.FanoutSink{store}
	if hub != nil {
		sinks = append(sinks, hub)
	}
	if producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaSnapshotSink(producer, cfg.Kafka.SnapshotTopic, cfg.Kafka.SummaryTopic))
	}
	if ch != nil && cfg.Sinks.ClickHouse {
		sinks = append(sinks, internalrepo.NewCHSignalStore(ch, cfg.ClickHouse.SignalTable, cfg.ClickHouse.SummaryTable))
	}
	return sinks
}

func ProvideFusionEngine(cfg *config.Config) *analytics.FusionEngine {
	e := cfg.Engine
	return analytics.NewFusionEngine(
		analytics.WithVariant(e.FusionVariant),
		analytics.WithLengths(e.RSILength, e.ATRLength, e.ADXLength),
		analytics.WithATRTargetMult(e.ATRTargetMult),
		analytics.WithVolumeBoomMult(e.VolumeBoomMult),
		analytics.WithSwingSensitivity(e.SwingSensitivity),
	)
}

// ProvideForecaster returns nil when the learned predictors are disabled.
func ProvideForecaster(cfg *config.Config) *learning.Forecaster {
	if !cfg.Models.Enabled {
		return nil
	}
	boosting := learning.DefaultGBRTConfig()
	boosting.Trees = cfg.Models.Trees
	rc := learning.ReversalConfig{
		MaxForward: cfg.Models.MaxForward,
		MinRows:    cfg.Models.MinRows,
		RSILength:  cfg.Engine.RSILength,
		ATRLength:  cfg.Engine.ATRLength,
		Boosting:   boosting,
	}
	nc := learning.DefaultNextMoveConfig()
	nc.MinSamples = cfg.Models.MinSamples
	return learning.NewForecaster(rc, nc, cfg.Models.Lookback)
}

func ProvideInstrumentAnalyzer(
	cfg *config.Config,
	candles repository.CandleSource,
	quotes repository.QuoteSource,
	engine *analytics.FusionEngine,
	forecaster *learning.Forecaster,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.InstrumentAnalyzer {
	return usecase.NewInstrumentAnalyzer(usecase.AnalyzerConfig{
		Lookback1m:       cfg.Poller.Lookback1m,
		Lookback5m:       cfg.Poller.Lookback5m,
		Lookback10m:      cfg.Poller.Lookback10m,
		DepthLevels:      cfg.Engine.DepthLevels,
		PressureLookback: cfg.Engine.PressureLookback,
		Recommendation: analytics.RecommendationConfig{
			Threshold:  cfg.Recommendation.Threshold,
			MinMinutes: cfg.Recommendation.MinMinutes,
			MaxMinutes: cfg.Recommendation.MaxMinutes,
		},
	}, candles, quotes, engine, forecaster, m, l)
}

func ProvideCycleRunner(
	cfg *config.Config,
	analyzer *usecase.InstrumentAnalyzer,
	sink repository.SnapshotSink,
	forecaster *learning.Forecaster,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.CycleRunner {
	return usecase.NewCycleRunner(usecase.CycleConfig{
		Interval: cfg.Poller.Interval,
		Workers:  cfg.Poller.Workers,
		Timeout:  cfg.Poller.Timeout,
	}, cfg.Poller.Symbols, analyzer, sink, forecaster, m, l)
}

func ProvideSignalUseCase(cfg *config.Config, candles repository.CandleSource, quotes repository.QuoteSource, engine *analytics.FusionEngine) *usecase.SignalUseCase {
	return usecase.NewSignalUseCase(candles, quotes, engine, cfg.Engine.DepthLevels, cfg.Engine.PressureLookback)
}

func ProvideCandlesUseCase(candles repository.CandleSource) *usecase.CandlesUseCase {
	return usecase.NewCandlesUseCase(candles)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimit.Rate, cfg.Server.RateLimit.Burst)
}

func ProvideSignalsHandler(
	l *applogger.Logger,
	store *internalrepo.CacheSnapshotStore,
	signals *usecase.SignalUseCase,
	candles *usecase.CandlesUseCase,
	limiter *ratelimit.Limiter,
	runner *usecase.CycleRunner,
) *api.SignalsEchoHandler {
	return api.NewSignalsEchoHandler(l, store, signals, candles, limiter, runner.Universe)
}

// ProvideHTTPServer mounts the API and, when enabled, the websocket stream.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.SignalsEchoHandler, hub *ws.Hub) *xhttp.Server {
	handlers := []xhttp.Handler{h}
	if hub != nil {
		handlers = append(handlers, hub)
	}
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(handlers,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	runner *usecase.CycleRunner,
	hub *ws.Hub,
	consumer *pkgkafka.Consumer,
	httpServer *xhttp.Server,
) *server.App {
	return server.New(cfg, l, runner, hub, consumer, httpServer)
}
