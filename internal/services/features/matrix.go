package features

import (
	"FinSignal/internal/domain/models"
	"FinSignal/internal/services/indicators"
)

const volumeWindow = 20

// ReversalFeatureNames is the column order of ReversalMatrix.
var ReversalFeatureNames = []string{"ret1", "ret3", "ret5", "rsi", "atrp", "mom", "rng", "volz"}

// NextMoveFeatureNames is the column order of NextMoveMatrix.
var NextMoveFeatureNames = []string{"ret1", "ret3", "ret5", "hl_spread", "body", "vol_norm"}

// ReversalMatrix builds one row per candle. Indicator values that are not
// yet defined are 0.
func ReversalMatrix(candles []models.Candle, rsiLen, atrLen int) [][]float64 {
	closes := indicators.Closes(candles)
	rsi, _ := indicators.RSI(closes, rsiLen)
	atr, _ := indicators.ATR(candles, atrLen)
	volz := VolumeRatios(candles, volumeWindow)

	rows := make([][]float64, len(candles))
	for i, c := range candles {
		var r, a float64
		if rsi != nil {
			r = finite(rsi[i])
		}
		if atr != nil {
			a = finite(atr[i] / (c.Close + 1e-9))
		}
		rows[i] = []float64{
			finite(PctChange(closes, i, 1)),
			finite(PctChange(closes, i, 3)),
			finite(PctChange(closes, i, 5)),
			r,
			a,
			finite((c.Close - c.Open) / (c.Open + 1e-9)),
			finite((c.High - c.Low) / (c.Open + 1e-9)),
			volz[i],
		}
	}
	return rows
}

// NextMoveMatrix builds one row per candle for the next-bar classifier.
func NextMoveMatrix(candles []models.Candle) [][]float64 {
	closes := indicators.Closes(candles)
	vol := VolumeRatios(candles, volumeWindow)

	rows := make([][]float64, len(candles))
	for i, c := range candles {
		var hl float64
		if i > 0 {
			prev := closes[i-1]
			if prev < 0 {
				prev = -prev
			}
			hl = finite((c.High - c.Low) / (prev + 1e-9))
		}
		open := c.Open
		if open < 0 {
			open = -open
		}
		rows[i] = []float64{
			finite(PctChange(closes, i, 1)),
			finite(PctChange(closes, i, 3)),
			finite(PctChange(closes, i, 5)),
			hl,
			finite((c.Close - c.Open) / (open + 1e-9)),
			vol[i],
		}
	}
	return rows
}
