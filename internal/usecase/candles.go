package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
)

const maxCandleWindow = 5000

// CandlesUseCase serves raw candle windows from the configured source.
type CandlesUseCase struct {
	store domrepo.CandleSource
}

func NewCandlesUseCase(store domrepo.CandleSource) *CandlesUseCase {
	return &CandlesUseCase{store: store}
}

type GetCandlesParams struct {
	Symbol    string
	Timeframe domrepo.Timeframe
	N         int
	From      time.Time
	To        time.Time
}

type GetCandlesResult struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	From      *time.Time      `json:"from,omitempty"`
	To        *time.Time      `json:"to,omitempty"`
	Count     int             `json:"count"`
	Candles   []models.Candle `json:"candles"`
}

func (p *GetCandlesParams) normalize() error {
	p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
	if p.Symbol == "" {
		return fmt.Errorf("symbol required")
	}
	if !domrepo.IsValidTimeframe(p.Timeframe) {
		p.Timeframe = domrepo.DefaultTimeframe()
	}
	if p.N <= 0 {
		p.N = 100
	}
	if p.N > maxCandleWindow {
		p.N = maxCandleWindow
	}
	return nil
}

// GetLatest returns the last N candles of the requested timeframe.
func (uc *CandlesUseCase) GetLatest(ctx context.Context, p GetCandlesParams) (*GetCandlesResult, error) {
	if err := p.normalize(); err != nil {
		return nil, err
	}
	candles, err := uc.store.GetLatestNCandles(ctx, p.Symbol, p.N, p.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}
	return &GetCandlesResult{
		Symbol:    p.Symbol,
		Timeframe: string(p.Timeframe),
		Count:     len(candles),
		Candles:   candles,
	}, nil
}

// GetRange returns candles closing within [From, To], at most N of them
// counted from the start of the range.
func (uc *CandlesUseCase) GetRange(ctx context.Context, p GetCandlesParams) (*GetCandlesResult, error) {
	if err := p.normalize(); err != nil {
		return nil, err
	}
	if p.From.After(p.To) {
		return nil, fmt.Errorf("from %s after to %s: %w",
			p.From.Format(time.RFC3339), p.To.Format(time.RFC3339), models.ErrInvalidRange)
	}
	candles, err := uc.store.GetCandles(ctx, p.Symbol, p.From, p.To, p.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}
	if len(candles) > p.N {
		candles = candles[:p.N]
	}
	return &GetCandlesResult{
		Symbol:    p.Symbol,
		Timeframe: string(p.Timeframe),
		From:      &p.From,
		To:        &p.To,
		Count:     len(candles),
		Candles:   candles,
	}, nil
}
