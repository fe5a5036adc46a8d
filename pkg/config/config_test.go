package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimal = `
environment: test
poller:
  symbols: [BTCUSDT, ETHUSDT]
source:
  type: clickhouse
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Engine.RSILength != 14 || c.Engine.ATRTargetMult != 0.5 || c.Engine.VolumeBoomMult != 1.3 {
		t.Errorf("engine defaults not applied: %+v", c.Engine)
	}
	if c.Engine.DepthLevels != 20 || c.Engine.SwingSensitivity != 3 || c.Engine.FusionVariant != "microstructure" {
		t.Errorf("engine defaults not applied: %+v", c.Engine)
	}
	if c.Recommendation.Threshold != 0.65 || c.Recommendation.MinMinutes != 3 || c.Recommendation.MaxMinutes != 20 {
		t.Errorf("recommendation defaults not applied: %+v", c.Recommendation)
	}
	if c.Models.MinRows != 120 || c.Models.MinSamples != 100 || c.Models.MaxForward != 30 || c.Models.Lookback != 300 {
		t.Errorf("model defaults not applied: %+v", c.Models)
	}
	if c.Poller.Interval != 3*time.Second || c.Poller.Lookback1m != 900 || c.Poller.Lookback10m != 120 {
		t.Errorf("poller defaults not applied: %+v", c.Poller)
	}
	if c.Server.Port != 8000 || c.Server.ReadTimeout != 10*time.Second {
		t.Errorf("server defaults not applied: %+v", c.Server)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal + `
engine:
  rsi_length: 21
  fusion_variant: basic
server:
  cors: false
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Engine.RSILength != 21 || c.Engine.FusionVariant != "basic" || c.Server.CORS {
		t.Errorf("overrides lost: engine=%+v cors=%v", c.Engine, c.Server.CORS)
	}
	if c.Engine.ATRLength != 14 {
		t.Errorf("sibling default lost: %d", c.Engine.ATRLength)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no symbols", "environment: test\nsource:\n  type: clickhouse\n", "Symbols"},
		{"bad variant", minimal + "engine:\n  fusion_variant: fancy\n", "FusionVariant"},
		{"bad source", "environment: test\npoller:\n  symbols: [A]\nsource:\n  type: ftp\n", "Type"},
		{"inverted duration window", minimal + "recommendation:\n  min_minutes: 10\n  max_minutes: 5\n", "MaxMinutes"},
		{"kafka without brokers", "environment: test\npoller:\n  symbols: [A]\nsource:\n  type: kafka\n", "kafka.brokers"},
		{"threshold above one", minimal + "recommendation:\n  threshold: 1.5\n", "Threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse([]byte(minimal))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	env := map[string]string{
		"SYMBOLS":       "solusdt, xrpusdt,",
		"KAFKA_BROKERS": "kafka-1:9092,kafka-2:9092",
		"LOG_LEVEL":     "debug",
	}
	c.applyEnv(func(k string) string { return env[k] })
	if strings.Join(c.Poller.Symbols, ",") != "SOLUSDT,XRPUSDT" {
		t.Errorf("symbols = %v", c.Poller.Symbols)
	}
	if strings.Join(c.Kafka.Brokers, ",") != "kafka-1:9092,kafka-2:9092" {
		t.Errorf("brokers = %v", c.Kafka.Brokers)
	}
	if c.Logging.Level != "debug" {
		t.Errorf("level = %s", c.Logging.Level)
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(minimal), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Poller.Symbols) != 2 {
		t.Errorf("symbols = %v", c.Poller.Symbols)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
