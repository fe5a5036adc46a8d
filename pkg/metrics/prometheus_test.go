package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"FinSignal/internal/domain/models"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegisterer(reg)

	r.RecordSignal("BTCUSDT", "5m", models.DirectionUp, 0.7)
	r.RecordSignal("ETHUSDT", "5m", models.DirectionUp, 0.4)
	r.RecordUnavailable("reversal_timer")
	r.RecordRecommendation(models.ActionHold)
	r.RecordError("sink")
	r.RecordLatency("cycle", 0.2)

	if got := testutil.ToFloat64(r.signals.WithLabelValues("5m", "up")); got != 2 {
		t.Errorf("signals = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.confidence.WithLabelValues("BTCUSDT", "5m")); got != 0.7 {
		t.Errorf("confidence = %v, want 0.7", got)
	}
	if got := testutil.ToFloat64(r.unavailable.WithLabelValues("reversal_timer")); got != 1 {
		t.Errorf("unavailable = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.recommendations.WithLabelValues("hold")); got != 1 {
		t.Errorf("recommendations = %v, want 1", got)
	}
	if n, err := testutil.GatherAndCount(reg, "finsignal_operation_duration_seconds"); err != nil || n != 1 {
		t.Errorf("latency series = %d (%v), want 1", n, err)
	}
}
