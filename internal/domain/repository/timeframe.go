package repository

import "time"

// Timeframe represents candle resolution buckets.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF10m Timeframe = "10m"
)

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF1m, TF5m, TF10m:
		return true
	default:
		return false
	}
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF1m }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// Duration returns the bar length of tf.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF5m:
		return 5 * time.Minute
	case TF10m:
		return 10 * time.Minute
	default:
		return time.Minute
	}
}
