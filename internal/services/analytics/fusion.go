package analytics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"FinSignal/internal/domain/models"
	"FinSignal/internal/services/indicators"
)

const (
	baseWindow         = 5
	minBodyMean        = 1e-6
	volumeZWindow      = 20
	volumeZMinPeriods  = 10
	volumeMinBars      = 5
	volumeZCap         = 3.0
	flatVolumeSD       = 1e-6
	volumeStrengthMix  = 0.6
	volumeBaseMix      = 0.4
	targetFloorPct     = 0.01
	rsiExtremeDamp     = 0.85
	rsiElevatedDamp    = 0.93
	rsiOverbought      = 70.0
	rsiOversold        = 30.0
	rsiElevatedHigh    = 60.0
	rsiElevatedLow     = 40.0
	liquidityBiasShare = 0.5
)

// FusionInput is everything known about one instrument on one timeframe.
type FusionInput struct {
	Candles   []models.Candle
	Book      *models.TopOfBook
	DepthBias *float64
	Pressure  int
}

// Fusion is the direction and confidence of one window plus the readings
// that produced them.
type Fusion struct {
	Direction  models.Direction
	Confidence float64
	Score      float64
	RSI        *float64
	ATR        *float64
	TargetPct  *float64
	Micro      *Micro
	Phase      Phase
}

// FusionEngine blends price action, volume, microstructure and liquidity
// pressure into one signal. It holds no mutable state.
type FusionEngine struct {
	cfg FusionConfig
}

func NewFusionEngine(opts ...FusionOption) *FusionEngine {
	cfg := DefaultFusionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &FusionEngine{cfg: cfg}
}

// Config returns the effective parameters.
func (e *FusionEngine) Config() FusionConfig { return e.cfg }

// Fuse scores a candle window. Fewer than five candles yields ErrInsufficientData.
func (e *FusionEngine) Fuse(in FusionInput) (Fusion, error) {
	if len(in.Candles) < baseWindow {
		return Fusion{}, fmt.Errorf("fusion: %d candles: %w", len(in.Candles), models.ErrInsufficientData)
	}
	baseDir, baseConf := baseSignal(in.Candles[len(in.Candles)-baseWindow:])
	volStrength := VolumeStrength(in.Candles)

	var out Fusion
	microSigned := 0.0
	if in.Book != nil {
		if m, err := AnalyzeMicro(*in.Book, in.DepthBias); err == nil {
			out.Micro = &m
			microSigned = m.Direction.Sign() * m.Confidence
		}
	}
	liquidity := 0.0
	if in.DepthBias != nil {
		liquidity = *in.DepthBias
	}

	w := e.cfg.Weights
	score := w.Base*baseDir.Sign()*baseConf +
		w.Microstructure*microSigned +
		w.Volume*(volumeStrengthMix*volStrength+volumeBaseMix*baseConf)*baseDir.Sign() +
		w.LiquidityPressure*(liquidityBiasShare*liquidity+(1-liquidityBiasShare)*float64(in.Pressure))
	score = clamp(score, -1, 1)

	out.Score = score
	out.Direction = models.DirectionOf(score)
	out.Confidence = abs(score)

	closes := indicators.Closes(in.Candles)
	if rsi, err := indicators.RSI(closes, e.cfg.RSILength); err == nil {
		last := indicators.Last(rsi)
		out.RSI = &last
		out.Confidence = clamp01(out.Confidence * RSIDamping(last))
	}

	if atr, err := indicators.ATR(in.Candles, e.cfg.ATRLength); err == nil {
		last := indicators.Last(atr)
		price := closes[len(closes)-1]
		target := math.Max(targetFloorPct, last/(price+1e-9)*e.cfg.ATRTargetMult*100)
		out.ATR = &last
		out.TargetPct = &target
	}

	out.Phase = ClassifyPhase(in.Candles, e.cfg.ADXLength, e.cfg.VolumeBoomMult)
	return out, nil
}

// Signal fuses the window and applies the wave adjustment, producing the
// record for timeframe tf.
func (e *FusionEngine) Signal(tf string, in FusionInput) (*models.SignalOutput, error) {
	f, err := e.Fuse(in)
	if err != nil {
		return nil, err
	}
	last := in.Candles[len(in.Candles)-1]
	wave := LabelWave(in.Candles, e.cfg.SwingSensitivity)
	conf, trend := ApplyWaveTrend(f.Confidence, wave.Label)

	s := &models.SignalOutput{
		Timeframe:     tf,
		Direction:     f.Direction,
		Confidence:    conf,
		Price:         last.Close,
		Timestamp:     last.CloseTime,
		Wave:          wave.Label,
		WaveKind:      wave.Kind,
		WaveTrend:     trend,
		Phase:         f.Phase.Phase,
		PhaseColor:    f.Phase.Color,
		PhaseStrength: f.Phase.Strength,
		RSI:           f.RSI,
		ATR:           f.ATR,
		TargetPct:     f.TargetPct,
		Pressure:      in.Pressure,
	}
	if f.Micro != nil {
		s.SpreadPct = models.Float(f.Micro.RelSpread * 100)
		s.Imbalance = models.Float(f.Micro.Imbalance)
	}
	if in.DepthBias != nil {
		s.LiquidityBiasPct = models.Float(*in.DepthBias * 100)
	}
	return s, nil
}

// baseSignal votes on the close-vs-open direction of the window; a tie goes
// to the last candle. Confidence is the last body relative to the mean body.
func baseSignal(window []models.Candle) (models.Direction, float64) {
	ups, downs := 0, 0
	bodies := make([]float64, len(window))
	for i, c := range window {
		switch {
		case c.Close > c.Open:
			ups++
		case c.Close < c.Open:
			downs++
		}
		bodies[i] = abs(c.Body())
	}
	last := window[len(window)-1]
	var dir models.Direction
	switch {
	case ups > downs:
		dir = models.DirectionUp
	case downs > ups:
		dir = models.DirectionDown
	case last.Close > last.Open:
		dir = models.DirectionUp
	default:
		dir = models.DirectionDown
	}
	avg := mean(bodies)
	if avg == 0 {
		avg = minBodyMean
	}
	return dir, clamp01(abs(last.Body()) / avg)
}

// VolumeStrength maps the z-score of the latest volume against the trailing
// 20-bar window into [0,1]. Fewer than 5 bars is 0. Below 10 bars the
// rolling statistics are undefined and fall back to mean 0 and a 1e-6
// deviation, so any positive volume saturates at 1.
func VolumeStrength(candles []models.Candle) float64 {
	n := len(candles)
	if n < volumeMinBars {
		return 0
	}
	last := candles[n-1].Volume
	m, sd := 0.0, flatVolumeSD
	if n >= volumeZMinPeriods {
		start := max(n-volumeZWindow, 0)
		if m, sd = stat.MeanStdDev(indicators.Volumes(candles[start:]), nil); sd == 0 {
			sd = flatVolumeSD
		}
	}
	z := clamp((last-m)/sd, -volumeZCap, volumeZCap)
	return clamp01((z + volumeZCap) / (2 * volumeZCap))
}

// RSIDamping returns the confidence multiplier for an RSI reading.
func RSIDamping(rsi float64) float64 {
	switch {
	case rsi >= rsiOverbought || rsi <= rsiOversold:
		return rsiExtremeDamp
	case (rsi >= rsiElevatedHigh && rsi < rsiOverbought) || (rsi > rsiOversold && rsi <= rsiElevatedLow):
		return rsiElevatedDamp
	default:
		return 1
	}
}
