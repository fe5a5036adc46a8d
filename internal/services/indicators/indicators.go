// Package indicators implements the technical indicators used by the signal
// engine. Every function is pure and returns a series aligned with its input,
// or models.ErrInsufficientData when the input is shorter than the lookback needs.
package indicators

import (
	"fmt"
	"math"

	"FinSignal/internal/domain/models"
)

const eps = 1e-12

// Minimum input lengths per indicator.
func MinBarsRSI(length int) int { return length + 1 }
func MinBarsATR(length int) int { return length }
func MinBarsADX(length int) int { return length + 1 }

func insufficient(name string, have, need int) error {
	return fmt.Errorf("%s: have %d bars, need %d: %w", name, have, need, models.ErrInsufficientData)
}

// smooth is an exponential average with factor alpha seeded by the first
// value at or after start. Positions before start are NaN.
func smooth(values []float64, alpha float64, start int) []float64 {
	out := make([]float64, len(values))
	for i := 0; i < start && i < len(out); i++ {
		out[i] = math.NaN()
	}
	for i := start; i < len(values); i++ {
		if i == start {
			out[i] = values[i]
			continue
		}
		out[i] = (1-alpha)*out[i-1] + alpha*values[i]
	}
	return out
}

// RSI uses Wilder smoothing (alpha = 1/length) of the positive and negative
// close deltas. The first element is NaN since it has no delta.
func RSI(closes []float64, length int) ([]float64, error) {
	if length < 1 {
		return nil, fmt.Errorf("rsi: invalid length %d", length)
	}
	if len(closes) < MinBarsRSI(length) {
		return nil, insufficient("rsi", len(closes), MinBarsRSI(length))
	}
	up := make([]float64, len(closes))
	down := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			up[i] = d
		} else {
			down[i] = -d
		}
	}
	alpha := 1 / float64(length)
	avgUp := smooth(up, alpha, 1)
	avgDown := smooth(down, alpha, 1)

	out := make([]float64, len(closes))
	out[0] = math.NaN()
	for i := 1; i < len(closes); i++ {
		rs := avgUp[i] / (avgDown[i] + eps)
		out[i] = 100 - 100/(1+rs)
	}
	return out, nil
}

// TrueRange returns max(|h-l|, |h-prevClose|, |l-prevClose|); the first bar
// uses only its own range.
func TrueRange(candles []models.Candle) []float64 {
	tr := make([]float64, len(candles))
	for i, c := range candles {
		r := math.Abs(c.High - c.Low)
		if i > 0 {
			pc := candles[i-1].Close
			r = math.Max(r, math.Max(math.Abs(c.High-pc), math.Abs(c.Low-pc)))
		}
		tr[i] = r
	}
	return tr
}

// ATR is the true range smoothed with alpha = 1/length.
func ATR(candles []models.Candle, length int) ([]float64, error) {
	if length < 1 {
		return nil, fmt.Errorf("atr: invalid length %d", length)
	}
	if len(candles) < MinBarsATR(length) {
		return nil, insufficient("atr", len(candles), MinBarsATR(length))
	}
	return smooth(TrueRange(candles), 1/float64(length), 0), nil
}

// EMA weights with span semantics: alpha = 2/(span+1), seeded by the first value.
func EMA(values []float64, span int) ([]float64, error) {
	if span < 1 {
		return nil, fmt.Errorf("ema: invalid span %d", span)
	}
	if len(values) == 0 {
		return nil, insufficient("ema", 0, 1)
	}
	return smooth(values, 2/(float64(span)+1), 0), nil
}

// ADX derives +DM/-DM from consecutive high/low deltas and returns the
// smoothed DX clamped to [0,100].
func ADX(candles []models.Candle, length int) ([]float64, error) {
	if length < 1 {
		return nil, fmt.Errorf("adx: invalid length %d", length)
	}
	n := len(candles)
	if n < MinBarsADX(length) {
		return nil, insufficient("adx", n, MinBarsADX(length))
	}
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
	}
	alpha := 1 / float64(length)
	atr := smooth(TrueRange(candles), alpha, 0)
	sPlus := smooth(plusDM, alpha, 1)
	sMinus := smooth(minusDM, alpha, 1)

	dx := make([]float64, n)
	for i := 1; i < n; i++ {
		plusDI := 100 * sPlus[i] / (atr[i] + eps)
		minusDI := 100 * sMinus[i] / (atr[i] + eps)
		dx[i] = 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI + eps)
	}
	adx := smooth(dx, alpha, 0)
	for i, v := range adx {
		adx[i] = clamp(v, 0, 100)
	}
	return adx, nil
}

// Last returns the final element of a series, or NaN for an empty one.
func Last(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}

// Closes extracts close prices.
func Closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Volumes extracts volumes.
func Volumes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}

// RollingMean returns the trailing mean over window; positions with fewer
// than window samples are NaN.
func RollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i+1 < window {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(window)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
