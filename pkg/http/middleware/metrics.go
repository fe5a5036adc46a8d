package middleware

import (
	"strconv"
	"time"

	applogger "FinSignal/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"route", "method", "class"},
	)

	httpInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "Current number of in-flight HTTP requests",
		},
		[]string{"route", "method"},
	)

	httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: []float64{200, 500, 1_000, 2_000, 5_000, 10_000, 50_000, 100_000, 500_000, 1_000_000},
		},
		[]string{"route", "method", "class"},
	)
)

// Metrics records request metrics labelled by the registered route template
// (c.Path()), which keeps label cardinality bounded. 5xx responses are
// logged as errors, requests slower than slowThreshold as warnings.
func Metrics(l *applogger.Logger, slowThreshold time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method

			httpInFlight.WithLabelValues(route, method).Inc()
			defer httpInFlight.WithLabelValues(route, method).Dec()
			start := time.Now()

			err := next(c)
			if err != nil {
				// Let echo render the error so the recorded status is final.
				c.Error(err)
			}

			res := c.Response()
			duration := time.Since(start)
			status := strconv.Itoa(res.Status)
			class := statusClass(res.Status)

			httpRequestsTotal.WithLabelValues(route, method, status).Inc()
			httpRequestDuration.WithLabelValues(route, method, class).Observe(duration.Seconds())
			httpResponseSize.WithLabelValues(route, method, class).Observe(float64(res.Size))

			if l == nil {
				return nil
			}
			fields := []applogger.Field{
				applogger.String("route", route),
				applogger.String("method", method),
				applogger.String("status", status),
				applogger.Duration("duration_ms", duration),
				applogger.Int64("bytes", res.Size),
			}
			switch {
			case res.Status >= 500:
				l.Error("http request failed", fields...)
			case slowThreshold > 0 && duration >= slowThreshold:
				l.Warn("http request slow", fields...)
			}
			return nil
		}
	}
}

func statusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
