package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/internal/services/analytics"
	"FinSignal/internal/services/features"
	"FinSignal/internal/services/learning"
	applogger "FinSignal/pkg/logger"
)

// AnalyzerConfig sets the windows the analyzer pulls per timeframe.
type AnalyzerConfig struct {
	Lookback1m       int
	Lookback5m       int
	Lookback10m      int
	DepthLevels      int
	PressureLookback int
	Recommendation   analytics.RecommendationConfig
}

// InstrumentAnalyzer runs the whole per-instrument pipeline: fetch candles
// and quotes, fuse every timeframe, forecast, and map to a recommendation.
type InstrumentAnalyzer struct {
	cfg        AnalyzerConfig
	candles    domrepo.CandleSource
	quotes     domrepo.QuoteSource
	engine     *analytics.FusionEngine
	forecaster *learning.Forecaster
	metrics    domrepo.Metrics
	log        *applogger.Logger
	now        func() time.Time
}

// NewInstrumentAnalyzer wires the pipeline. forecaster may be nil, in which
// case the learned predictions are always absent.
func NewInstrumentAnalyzer(
	cfg AnalyzerConfig,
	candles domrepo.CandleSource,
	quotes domrepo.QuoteSource,
	engine *analytics.FusionEngine,
	forecaster *learning.Forecaster,
	metrics domrepo.Metrics,
	log *applogger.Logger,
) *InstrumentAnalyzer {
	if log == nil {
		log = applogger.Nop()
	}
	return &InstrumentAnalyzer{
		cfg:        cfg,
		candles:    candles,
		quotes:     quotes,
		engine:     engine,
		forecaster: forecaster,
		metrics:    metrics,
		log:        log,
		now:        time.Now,
	}
}

// marketView is the raw input gathered for one instrument.
type marketView struct {
	m1, m5, m10 []models.Candle
	book        *models.TopOfBook
	depthBias   *float64
	pressure    int
}

// Analyze produces the snapshot for symbol. It fails only when the 1m
// history cannot be read at all; every other missing input just leaves the
// matching fields empty.
func (a *InstrumentAnalyzer) Analyze(ctx context.Context, symbol string) (*models.InstrumentSnapshot, error) {
	view, err := a.gather(ctx, symbol)
	if err != nil {
		return nil, err
	}

	snap := &models.InstrumentSnapshot{
		Symbol:     symbol,
		Timeframes: make(map[string]*models.SignalOutput, 3),
		Timestamp:  a.now().UTC(),
	}
	for _, tf := range []struct {
		name    domrepo.Timeframe
		candles []models.Candle
	}{
		{domrepo.TF1m, view.m1},
		{domrepo.TF5m, view.m5},
		{domrepo.TF10m, view.m10},
	} {
		out, err := a.engine.Signal(string(tf.name), analytics.FusionInput{
			Candles:   tf.candles,
			Book:      view.book,
			DepthBias: view.depthBias,
			Pressure:  view.pressure,
		})
		if err != nil {
			a.unavailable(symbol, "fusion_"+string(tf.name), err)
			continue
		}
		snap.Timeframes[string(tf.name)] = out
		a.metrics.RecordSignal(symbol, string(tf.name), out.Direction, out.Confidence)
	}

	snap.Extras = a.extras(symbol, view)
	snap.Recommendation = analytics.Recommend(a.cfg.Recommendation, snap.Timeframes, snap.Extras.PredictedMinutes, snap.Timestamp)
	a.metrics.RecordRecommendation(snap.Recommendation.Action)
	return snap, nil
}

func (a *InstrumentAnalyzer) gather(ctx context.Context, symbol string) (marketView, error) {
	var v marketView
	m1, err := a.candles.GetLatestNCandles(ctx, symbol, a.cfg.Lookback1m, domrepo.TF1m)
	if err != nil {
		return v, fmt.Errorf("1m candles %s: %w", symbol, err)
	}
	v.m1 = m1
	v.m10 = features.Resample10m(m1, a.cfg.Lookback10m)
	v.pressure = features.PressureVote(m1, a.cfg.PressureLookback)

	if m5, err := a.candles.GetLatestNCandles(ctx, symbol, a.cfg.Lookback5m, domrepo.TF5m); err == nil {
		v.m5 = m5
	} else {
		a.unavailable(symbol, "candles_5m", err)
	}

	if a.quotes == nil {
		return v, nil
	}
	if book, err := a.quotes.TopOfBook(ctx, symbol); err == nil {
		v.book = &book
	} else {
		a.unavailable(symbol, "book", err)
	}
	if depth, err := a.quotes.Depth(ctx, symbol); err == nil {
		bias := features.DepthBias(depth, a.cfg.DepthLevels)
		v.depthBias = &bias
	} else {
		a.unavailable(symbol, "depth", err)
	}
	return v, nil
}

func (a *InstrumentAnalyzer) extras(symbol string, v marketView) models.InstrumentExtras {
	ex := models.InstrumentExtras{Pressure: v.pressure}
	if v.book != nil {
		if m, err := analytics.AnalyzeMicro(*v.book, v.depthBias); err == nil {
			ex.SpreadPct = models.Float(m.RelSpread * 100)
			ex.Imbalance = models.Float(m.Imbalance)
		} else {
			a.unavailable(symbol, "micro", err)
		}
	}
	if qv, ok := features.QuoteVolume(v.m1); ok {
		ex.QuoteVolume1m = &qv
	}
	if v.depthBias != nil {
		ex.LiquidityBiasPct = models.Float(*v.depthBias * 100)
	}

	if a.forecaster == nil {
		return ex
	}
	start := time.Now()
	fc := a.forecaster.Forecast(symbol, v.m1)
	a.metrics.RecordLatency("forecast", time.Since(start).Seconds())
	ex.PredictedMinutes = fc.PredictedMinutes
	ex.NextUpProbability = fc.NextUpProbability
	if fc.ReversalErr != nil {
		a.unavailable(symbol, "reversal_timer", fc.ReversalErr)
	}
	if fc.NextMoveErr != nil {
		a.unavailable(symbol, "next_move", fc.NextMoveErr)
	}
	return ex
}

// unavailable records an expected gap at debug level; anything that is not
// a known data condition is counted as an error too.
func (a *InstrumentAnalyzer) unavailable(symbol, stage string, err error) {
	a.metrics.RecordUnavailable(stage)
	switch {
	case errors.Is(err, models.ErrInsufficientData),
		errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrInvalidBook):
		a.log.Debug("stage unavailable",
			applogger.String("symbol", symbol),
			applogger.String("stage", stage),
			applogger.Error(err),
		)
	default:
		a.metrics.RecordError(stage)
		a.log.Warn("stage failed",
			applogger.String("symbol", symbol),
			applogger.String("stage", stage),
			applogger.Error(err),
		)
	}
}
