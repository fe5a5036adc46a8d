package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"FinSignal/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signals         *prometheus.CounterVec
	confidence      *prometheus.GaugeVec
	unavailable     *prometheus.CounterVec
	recommendations *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New registers the engine metrics on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the engine metrics on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsignal_signals_total",
				Help: "Signals emitted by timeframe and direction",
			},
			[]string{"timeframe", "direction"},
		),
		confidence: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "finsignal_signal_confidence",
				Help: "Latest signal confidence per symbol and timeframe",
			},
			[]string{"symbol", "timeframe"},
		),
		unavailable: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsignal_unavailable_total",
				Help: "Stages that returned no result for lack of data",
			},
			[]string{"stage"},
		),
		recommendations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsignal_recommendations_total",
				Help: "Recommendations by action",
			},
			[]string{"action"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsignal_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finsignal_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSignal counts an emitted signal and stores its confidence.
func (r *Recorder) RecordSignal(symbol, tf string, dir models.Direction, confidence float64) {
	r.signals.WithLabelValues(tf, string(dir)).Inc()
	r.confidence.WithLabelValues(symbol, tf).Set(confidence)
}

// RecordUnavailable counts a stage without output.
func (r *Recorder) RecordUnavailable(stage string) {
	r.unavailable.WithLabelValues(stage).Inc()
}

// RecordRecommendation counts a recommendation by action.
func (r *Recorder) RecordRecommendation(action models.Action) {
	r.recommendations.WithLabelValues(string(action)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
