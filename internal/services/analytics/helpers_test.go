package analytics

import (
	"math"
	"time"

	"FinSignal/internal/domain/models"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// makeBars builds a chained series where every bar opens at the previous close.
func makeBars(n int, base, step float64) []models.Candle {
	out := make([]models.Candle, n)
	price := base
	for i := 0; i < n; i++ {
		o := price
		c := o + step
		out[i] = bar(i, o, math.Max(o, c)+0.5, math.Min(o, c)-0.5, c, 1000)
		price = c
	}
	return out
}

func bar(i int, o, h, l, c, v float64) models.Candle {
	return models.Candle{
		OpenTime:  t0.Add(time.Duration(i) * time.Minute),
		Open:      o,
		High:      h,
		Low:       l,
		Close:     c,
		Volume:    v,
		CloseTime: t0.Add(time.Duration(i+1)*time.Minute - time.Millisecond),
	}
}

// zigzag turns a price path into bars spanning price ± 0.5.
func zigzag(path ...float64) []models.Candle {
	out := make([]models.Candle, len(path))
	for i, p := range path {
		out[i] = bar(i, p, p+0.5, p-0.5, p, 1000)
	}
	return out
}

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }
