package di

import (
	"testing"

	internalrepo "FinSignal/internal/repository"
	"FinSignal/pkg/config"
)

const testConfig = `
poller:
  symbols: [btcusdt]
source:
  type: kafka
kafka:
  brokers: [localhost:9092]
  market_topics: [market.klines]
`

func loadConfig(t *testing.T, extra string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(testConfig + extra))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return cfg
}

func TestOptionalProvidersStayOff(t *testing.T) {
	cfg := loadConfig(t, "models:\n  enabled: false\nwebsocket:\n  enabled: false\n")

	ch, cleanup, err := ProvideClickHouseClient(cfg)
	if err != nil || ch != nil {
		t.Fatalf("clickhouse = %v, err = %v", ch, err)
	}
	cleanup()

	producer, cleanup, err := ProvideKafkaProducer(cfg)
	if err != nil || producer != nil {
		t.Fatalf("producer = %v, err = %v", producer, err)
	}
	cleanup()

	if fc := ProvideForecaster(cfg); fc != nil {
		t.Error("forecaster built with models disabled")
	}
	if hub := ProvideHub(cfg, nil, nil); hub != nil {
		t.Error("hub built with websocket disabled")
	}
}

func TestProvideSourcesAndSinks(t *testing.T) {
	cfg := loadConfig(t, "")
	market := ProvideMarketStore(cfg)

	if src := ProvideCandleSource(cfg, market, nil, nil); src != market {
		t.Errorf("kafka source should read the market store, got %T", src)
	}

	svc, cleanup, err := ProvideCache(cfg)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	defer cleanup()
	store := ProvideSnapshotStore(svc, cfg)
	hub := ProvideHub(cfg, store, nil)
	if hub == nil {
		t.Fatal("hub missing with websocket enabled")
	}

	sink, ok := ProvideSnapshotSink(cfg, store, hub, nil, nil).(internalrepo.FanoutSink)
	if !ok || len(sink) != 2 {
		t.Fatalf("sink = %#v", sink)
	}
	if sink[0] != store {
		t.Error("snapshot store must be the first sink")
	}

	if fc := ProvideForecaster(cfg); fc == nil {
		t.Error("forecaster missing with models enabled")
	}
}

func TestProvideKafkaConsumerNeedsTopics(t *testing.T) {
	cfg := loadConfig(t, "")
	cfg.Kafka.MarketTopics = nil
	consumer, err := ProvideKafkaConsumer(cfg, nil, nil)
	if err != nil || consumer != nil {
		t.Fatalf("consumer = %v, err = %v", consumer, err)
	}
}
