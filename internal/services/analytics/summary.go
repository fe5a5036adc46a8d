package analytics

import (
	"fmt"
	"time"

	"FinSignal/internal/domain/models"
)

const summaryTimeframe = "5m"

// Summarize rolls the 5m outputs of every snapshot into a market summary.
// Snapshots without a 5m output are skipped; if none remain the result is
// ErrInsufficientData. Ties in the direction vote go to Bullish.
func Summarize(snapshots []*models.InstrumentSnapshot, now time.Time) (models.MarketSummary, error) {
	var up, down, votes int
	var conf, liq, spread float64
	for _, snap := range snapshots {
		if snap == nil {
			continue
		}
		s := snap.Timeframes[summaryTimeframe]
		if s == nil {
			continue
		}
		if s.Direction == models.DirectionUp {
			up++
		} else {
			down++
		}
		conf += s.Confidence
		liq += valueOr(s.LiquidityBiasPct, 0)
		spread += valueOr(s.SpreadPct, 0)
		votes += s.Pressure
	}
	n := up + down
	if n == 0 {
		return models.MarketSummary{}, fmt.Errorf("summary: no %s outputs: %w", summaryTimeframe, models.ErrInsufficientData)
	}

	sum := models.MarketSummary{
		Trend:               models.TrendBullish,
		AvgConfidencePct:    Round(conf/float64(n)*100, 1),
		AvgLiquidityBiasPct: Round(liq/float64(n), 1),
		AvgSpreadPct:        Round(spread/float64(n), 2),
		PressureLabel:       models.PressureNeutral,
		Instruments:         n,
		Timestamp:           now,
	}
	if up < down {
		sum.Trend = models.TrendBearish
	}
	switch {
	case votes > 0:
		sum.PressureLabel = models.PressureBuySide
	case votes < 0:
		sum.PressureLabel = models.PressureSellSide
	}
	return sum, nil
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
