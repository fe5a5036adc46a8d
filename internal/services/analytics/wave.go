package analytics

import "FinSignal/internal/domain/models"

const (
	minPivots       = 3
	impulseBoost    = 1.10
	correctionDamp  = 0.90
	maxImpulseLabel = 5
)

// Swing marks per bar: +1 swing high, -1 swing low, 0 none.
type Swing int8

// DetectSwings marks bar i as a swing high when its high is the maximum of
// [i-s, i+s], otherwise as a swing low when its low is the minimum. The high
// test runs first so a bar that qualifies for both is a high.
func DetectSwings(candles []models.Candle, s int) []Swing {
	n := len(candles)
	out := make([]Swing, n)
	if s < 1 || n < 2*s+1 {
		return out
	}
	for i := s; i < n-s; i++ {
		isHigh, isLow := true, true
		for j := i - s; j <= i+s; j++ {
			if candles[j].High > candles[i].High {
				isHigh = false
			}
			if candles[j].Low < candles[i].Low {
				isLow = false
			}
		}
		switch {
		case isHigh:
			out[i] = 1
		case isLow:
			out[i] = -1
		}
	}
	return out
}

// Pivots returns the swing points with runs of the same kind collapsed to
// their most extreme member. On equal extremes the later pivot wins.
func Pivots(candles []models.Candle, s int) []models.Pivot {
	var out []models.Pivot
	for i, sw := range DetectSwings(candles, s) {
		var p models.Pivot
		switch sw {
		case 1:
			p = models.Pivot{Index: i, Kind: models.PivotHigh, Price: candles[i].High}
		case -1:
			p = models.Pivot{Index: i, Kind: models.PivotLow, Price: candles[i].Low}
		default:
			continue
		}
		if len(out) == 0 || out[len(out)-1].Kind != p.Kind {
			out = append(out, p)
			continue
		}
		last := &out[len(out)-1]
		if (p.Kind == models.PivotHigh && p.Price >= last.Price) ||
			(p.Kind == models.PivotLow && p.Price <= last.Price) {
			*last = p
		}
	}
	return out
}

// Wave is the result of labeling the current wave of a window.
type Wave struct {
	Label  models.WaveLabel
	Kind   models.WaveKind
	Pivots int
}

var undefinedWave = Wave{Label: models.WaveUndefined, Kind: models.WaveKindUndefined}

// LabelWave applies the impulse/correction counting heuristic to the
// collapsed pivots of candles. Fewer than three pivots yields Undefined.
func LabelWave(candles []models.Candle, s int) Wave {
	piv := Pivots(candles, s)
	if len(piv) < minPivots {
		undefined := undefinedWave
		undefined.Pivots = len(piv)
		return undefined
	}

	var highs, lows []float64
	for _, p := range piv {
		if p.Kind == models.PivotHigh {
			highs = append(highs, p.Price)
		} else {
			lows = append(lows, p.Price)
		}
	}
	score := progression(highs) + progression(lows)

	count := len(piv)
	if score >= 0 {
		label := count
		if label > maxImpulseLabel {
			label = maxImpulseLabel
		}
		return Wave{Label: impulseLabels[label-1], Kind: models.WaveKindImpulse, Pivots: count}
	}

	w := Wave{Kind: models.WaveKindCorrection, Pivots: count}
	switch {
	case count <= 2:
		w.Label = models.WaveA
	case count <= 4:
		w.Label = models.WaveB
	default:
		w.Label = models.WaveC
	}
	return w
}

// progression adds +1 for every extreme above its predecessor and -1 otherwise.
func progression(prices []float64) int {
	score := 0
	for i := 1; i < len(prices); i++ {
		if prices[i] > prices[i-1] {
			score++
		} else {
			score--
		}
	}
	return score
}

var impulseLabels = []models.WaveLabel{models.Wave1, models.Wave2, models.Wave3, models.Wave4, models.Wave5}

// ApplyWaveTrend scales confidence by the wave label: impulse waves 1, 3 and 5
// boost it, corrective waves damp it. The result stays in [0,1].
func ApplyWaveTrend(confidence float64, label models.WaveLabel) (float64, models.WaveTrend) {
	switch label {
	case models.Wave1, models.Wave3, models.Wave5:
		return clamp01(confidence * impulseBoost), models.WaveTrendRising
	case models.WaveA, models.WaveB, models.WaveC:
		return clamp01(confidence * correctionDamp), models.WaveTrendFalling
	default:
		return confidence, models.WaveTrendUndetermined
	}
}
