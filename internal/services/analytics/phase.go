package analytics

import (
	"math"

	"FinSignal/internal/domain/models"
	"FinSignal/internal/services/indicators"
)

const (
	phaseRSILength    = 14
	phaseVolumeWindow = 20
	adxStartLevel     = 20.0
	adxTrendLow       = 25.0
	adxTrendHigh      = 45.0
	adxStrengthScale  = 50.0
)

// Phase is a trend-phase classification with its display color.
type Phase struct {
	Phase    models.TrendPhase
	Color    models.PhaseColor
	Strength float64
}

var neutralPhase = Phase{Phase: models.PhaseNeutral, Color: models.ColorGray}

// ClassifyPhase evaluates, in order, Start, In Progress and End rules over
// ADX, RSI(14), EMA 20/50/100 and volume. Windows shorter than adxLen+5
// bars are Neutral with zero strength.
func ClassifyPhase(candles []models.Candle, adxLen int, boomMult float64) Phase {
	if len(candles) < adxLen+5 {
		return neutralPhase
	}
	adx, err := indicators.ADX(candles, adxLen)
	if err != nil {
		return neutralPhase
	}
	adxNow := adx[len(adx)-1]
	adxPrev := adx[len(adx)-2]

	closes := indicators.Closes(candles)
	rsiNow := math.NaN()
	if rsi, err := indicators.RSI(closes, phaseRSILength); err == nil {
		rsiNow = indicators.Last(rsi)
	}
	ema20 := lastEMA(closes, 20)
	ema50 := lastEMA(closes, 50)
	ema100 := lastEMA(closes, 100)

	vNow := candles[len(candles)-1].Volume
	vAvg := 0.0
	if len(candles) >= phaseVolumeWindow {
		vAvg = indicators.Last(indicators.RollingMean(indicators.Volumes(candles), phaseVolumeWindow))
	}

	strength := clamp01(adxNow / adxStrengthScale)
	trending := adxNow > adxTrendLow && adxNow <= adxTrendHigh
	bullStack := ema20 > ema50 && ema50 > ema100
	bearStack := ema20 < ema50 && ema50 < ema100

	switch {
	case adxPrev < adxStartLevel && adxNow > adxStartLevel && vAvg > 0 && vNow > boomMult*vAvg:
		return Phase{Phase: models.PhaseStart, Color: models.ColorYellow, Strength: strength}
	case (bullStack && trending && rsiNow >= 55 && rsiNow <= 70) ||
		(bearStack && trending && rsiNow >= 30 && rsiNow <= 45):
		return Phase{Phase: models.PhaseInProgress, Color: models.ColorGreen, Strength: strength}
	case adxNow < adxPrev && (rsiNow > 70 || rsiNow < 30):
		return Phase{Phase: models.PhaseEnd, Color: models.ColorRed, Strength: strength}
	default:
		return Phase{Phase: models.PhaseNeutral, Color: models.ColorGray, Strength: strength}
	}
}

func lastEMA(values []float64, span int) float64 {
	ema, err := indicators.EMA(values, span)
	if err != nil {
		return math.NaN()
	}
	return indicators.Last(ema)
}
