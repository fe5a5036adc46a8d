package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/internal/services/features"
)

// MarketStore keeps the recent 1m candle history, the top of book and the
// depth snapshot of every symbol in memory. Higher timeframes are resampled
// from the 1m history on read. It implements CandleSource, QuoteSource and
// MarketDataWriter.
type MarketStore struct {
	mu       sync.RWMutex
	capacity int
	series   map[string]*ring
	books    map[string]models.TopOfBook
	depth    map[string]models.DepthSnapshot
}

func NewMarketStore(capacity int) *MarketStore {
	if capacity < 1 {
		capacity = 1000
	}
	return &MarketStore{
		capacity: capacity,
		series:   make(map[string]*ring),
		books:    make(map[string]models.TopOfBook),
		depth:    make(map[string]models.DepthSnapshot),
	}
}

var (
	_ domrepo.CandleSource     = (*MarketStore)(nil)
	_ domrepo.QuoteSource      = (*MarketStore)(nil)
	_ domrepo.MarketDataWriter = (*MarketStore)(nil)
)

func normSymbol(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

// PutCandle appends c. An update to the newest bar (same OpenTime) replaces
// it; bars older than the newest are ignored.
func (s *MarketStore) PutCandle(symbol string, c models.Candle) {
	symbol = normSymbol(symbol)
	c.Symbol = symbol
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.series[symbol]
	if !ok {
		r = newRing(s.capacity)
		s.series[symbol] = r
	}
	r.put(c)
}

func (s *MarketStore) PutTopOfBook(symbol string, b models.TopOfBook) {
	s.mu.Lock()
	s.books[normSymbol(symbol)] = b
	s.mu.Unlock()
}

func (s *MarketStore) PutDepth(symbol string, d models.DepthSnapshot) {
	s.mu.Lock()
	s.depth[normSymbol(symbol)] = d
	s.mu.Unlock()
}

func (s *MarketStore) TopOfBook(_ context.Context, symbol string) (models.TopOfBook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[normSymbol(symbol)]
	if !ok {
		return models.TopOfBook{}, fmt.Errorf("top of book %s: %w", symbol, models.ErrNotFound)
	}
	return b, nil
}

func (s *MarketStore) Depth(_ context.Context, symbol string) (models.DepthSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.depth[normSymbol(symbol)]
	if !ok {
		return models.DepthSnapshot{}, fmt.Errorf("depth %s: %w", symbol, models.ErrNotFound)
	}
	return d, nil
}

// GetLatestNCandles returns up to n most recent bars of tf, oldest first.
func (s *MarketStore) GetLatestNCandles(_ context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	all, err := s.snapshot(symbol)
	if err != nil {
		return nil, err
	}
	if tf != domrepo.TF1m {
		return features.Resample(all, tf.Duration(), n), nil
	}
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}

// GetCandles returns bars of tf whose CloseTime falls in [from, to].
func (s *MarketStore) GetCandles(_ context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	all, err := s.snapshot(symbol)
	if err != nil {
		return nil, err
	}
	if tf != domrepo.TF1m {
		all = features.Resample(all, tf.Duration(), 0)
	}
	lo := sort.Search(len(all), func(i int) bool { return !all[i].CloseTime.Before(from) })
	hi := sort.Search(len(all), func(i int) bool { return all[i].CloseTime.After(to) })
	if lo >= hi {
		return nil, nil
	}
	return all[lo:hi], nil
}

// Symbols lists the symbols with candle history.
func (s *MarketStore) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.series))
	for sym := range s.series {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func (s *MarketStore) snapshot(symbol string) ([]models.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.series[normSymbol(symbol)]
	if !ok || r.len() == 0 {
		return nil, fmt.Errorf("candles %s: %w", symbol, models.ErrNotFound)
	}
	return r.slice(), nil
}

// ring is a fixed-capacity FIFO of candles ordered by OpenTime.
type ring struct {
	buf   []models.Candle
	start int
	n     int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]models.Candle, capacity)}
}

func (r *ring) len() int { return r.n }

func (r *ring) at(i int) *models.Candle {
	return &r.buf[(r.start+i)%len(r.buf)]
}

func (r *ring) put(c models.Candle) {
	if r.n > 0 {
		last := r.at(r.n - 1)
		switch {
		case c.OpenTime.Equal(last.OpenTime):
			*last = c
			return
		case c.OpenTime.Before(last.OpenTime):
			return
		}
	}
	if r.n < len(r.buf) {
		*r.at(r.n) = c
		r.n++
		return
	}
	r.buf[r.start] = c
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ring) slice() []models.Candle {
	out := make([]models.Candle, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = *r.at(i)
	}
	return out
}
