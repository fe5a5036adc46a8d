package features

import (
	"math"
	"time"

	"FinSignal/internal/domain/models"
)

const volumeRatioCap = 10.0

// Resample groups candles into buckets of width d keyed by the floor of each
// candle's CloseTime. Open is the first member's open, High the max, Low the
// min, Close the last close and Volume the sum. Empty buckets never appear.
// Only the last keep buckets are returned when keep > 0.
func Resample(candles []models.Candle, d time.Duration, keep int) []models.Candle {
	if len(candles) == 0 {
		return nil
	}
	var out []models.Candle
	var cur models.Candle
	var bucket time.Time
	for i, c := range candles {
		b := c.CloseTime.Truncate(d)
		if i == 0 || !b.Equal(bucket) {
			if i > 0 {
				out = append(out, cur)
			}
			bucket = b
			cur = c
			continue
		}
		cur.High = math.Max(cur.High, c.High)
		cur.Low = math.Min(cur.Low, c.Low)
		cur.Close = c.Close
		cur.Volume += c.Volume
		cur.CloseTime = c.CloseTime
	}
	out = append(out, cur)
	if keep > 0 && len(out) > keep {
		out = out[len(out)-keep:]
	}
	return out
}

// Resample10m builds 10-minute bars from 1-minute bars.
func Resample10m(candles []models.Candle, keep int) []models.Candle {
	return Resample(candles, 10*time.Minute, keep)
}

// PressureVote compares the summed close-direction signs with the summed
// volume percent changes over the last lookback+1 candles. It returns +1
// when both are positive, -1 when price falls on rising volume and 0
// otherwise, including when there are fewer than lookback+1 candles.
func PressureVote(candles []models.Candle, lookback int) int {
	if lookback < 1 || len(candles) < lookback+1 {
		return 0
	}
	w := candles[len(candles)-lookback-1:]
	priceDir := 0.0
	volChange := 0.0
	for i := 1; i < len(w); i++ {
		priceDir += sign(w[i].Close - w[i-1].Close)
		if prev := w[i-1].Volume; prev > 0 {
			volChange += (w[i].Volume - prev) / prev
		}
	}
	switch {
	case priceDir > 0 && volChange > 0:
		return 1
	case priceDir < 0 && volChange > 0:
		return -1
	default:
		return 0
	}
}

// DepthBias summarises the first levels of both book sides as
// (bids-asks)/(bids+asks), in [-1,1]. It is 0 when there is no volume.
func DepthBias(depth models.DepthSnapshot, levels int) float64 {
	bids := sumQty(depth.Bids, levels)
	asks := sumQty(depth.Asks, levels)
	total := bids + asks
	if total <= 0 {
		return 0
	}
	return (bids - asks) / total
}

func sumQty(levels []models.BookLevel, n int) float64 {
	if n > 0 && len(levels) > n {
		levels = levels[:n]
	}
	s := 0.0
	for _, l := range levels {
		s += l.Qty
	}
	return s
}

// QuoteVolume is the last close times the last volume.
func QuoteVolume(candles []models.Candle) (float64, bool) {
	if len(candles) == 0 {
		return 0, false
	}
	last := candles[len(candles)-1]
	return last.Close * last.Volume, true
}

// PctChange returns values[i]/values[i-k]-1, or 0 when i-k is out of range.
func PctChange(values []float64, i, k int) float64 {
	if i-k < 0 {
		return 0
	}
	prev := values[i-k]
	if prev == 0 {
		return 0
	}
	return values[i]/prev - 1
}

// VolumeRatios returns volume / trailing mean(window), clipped to [0,10].
// Bars without a full window get 0.
func VolumeRatios(candles []models.Candle, window int) []float64 {
	out := make([]float64, len(candles))
	sum := 0.0
	for i, c := range candles {
		sum += c.Volume
		if i >= window {
			sum -= candles[i-window].Volume
		}
		if i+1 < window {
			continue
		}
		out[i] = clip(c.Volume/(sum/float64(window)+1e-9), 0, volumeRatioCap)
	}
	return out
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func clip(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}

// finite replaces NaN and infinities with 0.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
