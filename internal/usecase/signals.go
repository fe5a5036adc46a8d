package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/internal/services/analytics"
	"FinSignal/internal/services/features"
)

// SignalUseCase fuses a single timeframe on demand, outside the cycle.
type SignalUseCase struct {
	candles  domrepo.CandleSource
	quotes   domrepo.QuoteSource
	engine   *analytics.FusionEngine
	levels   int
	pressure int
}

func NewSignalUseCase(candles domrepo.CandleSource, quotes domrepo.QuoteSource, engine *analytics.FusionEngine, depthLevels, pressureLookback int) *SignalUseCase {
	return &SignalUseCase{candles: candles, quotes: quotes, engine: engine, levels: depthLevels, pressure: pressureLookback}
}

type GetSignalParams struct {
	Symbol    string
	N         int
	Timeframe domrepo.Timeframe
}

// SignalResult wraps the output; Available is false when the window was too
// short, which is a normal answer rather than an error.
type SignalResult struct {
	Symbol    string               `json:"symbol"`
	Timeframe string               `json:"timeframe"`
	Available bool                 `json:"available"`
	Reason    string               `json:"reason,omitempty"`
	Signal    *models.SignalOutput `json:"signal,omitempty"`
}

func (uc *SignalUseCase) GetSignal(ctx context.Context, p GetSignalParams) (*SignalResult, error) {
	p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if !domrepo.IsValidTimeframe(p.Timeframe) {
		p.Timeframe = domrepo.DefaultTimeframe()
	}

	candles, err := uc.candles.GetLatestNCandles(ctx, p.Symbol, p.N, p.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}

	// pressure is always voted on 1m bars, as in the cycle
	m1 := candles
	if p.Timeframe != domrepo.TF1m {
		if m1, err = uc.candles.GetLatestNCandles(ctx, p.Symbol, uc.pressure+1, domrepo.TF1m); err != nil {
			m1 = nil
		}
	}
	in := analytics.FusionInput{
		Candles:  candles,
		Pressure: features.PressureVote(m1, uc.pressure),
	}
	if uc.quotes != nil {
		if book, err := uc.quotes.TopOfBook(ctx, p.Symbol); err == nil {
			in.Book = &book
		}
		if depth, err := uc.quotes.Depth(ctx, p.Symbol); err == nil {
			bias := features.DepthBias(depth, uc.levels)
			in.DepthBias = &bias
		}
	}

	res := &SignalResult{Symbol: p.Symbol, Timeframe: string(p.Timeframe)}
	out, err := uc.engine.Signal(string(p.Timeframe), in)
	switch {
	case errors.Is(err, models.ErrInsufficientData):
		res.Reason = err.Error()
		return res, nil
	case err != nil:
		return nil, err
	}
	res.Available = true
	res.Signal = out
	return res, nil
}
