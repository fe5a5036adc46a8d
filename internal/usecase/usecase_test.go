package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/internal/repository"
	"FinSignal/internal/services/analytics"
	"FinSignal/internal/services/learning"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// recordingMetrics counts every call by label.
type recordingMetrics struct {
	mu          sync.Mutex
	signals     map[string]int
	unavailable map[string]int
	errors      map[string]int
	actions     map[models.Action]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		signals:     map[string]int{},
		unavailable: map[string]int{},
		errors:      map[string]int{},
		actions:     map[models.Action]int{},
	}
}

func (m *recordingMetrics) RecordSignal(_, tf string, _ models.Direction, _ float64) {
	m.mu.Lock()
	m.signals[tf]++
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordUnavailable(stage string) {
	m.mu.Lock()
	m.unavailable[stage]++
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordRecommendation(a models.Action) {
	m.mu.Lock()
	m.actions[a]++
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordLatency(string, float64) {}

func (m *recordingMetrics) count(table map[string]int, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return table[key]
}

// seed writes n chained 1m bars for symbol, every bar opening at the previous close.
func seed(store *repository.MarketStore, symbol string, n int, step float64) {
	price := 100.0
	for i := 0; i < n; i++ {
		o := price
		c := o + step
		store.PutCandle(symbol, models.Candle{
			OpenTime:  t0.Add(time.Duration(i) * time.Minute),
			Open:      o,
			High:      math.Max(o, c) + 0.5,
			Low:       math.Min(o, c) - 0.5,
			Close:     c,
			Volume:    1000 + float64(i),
			CloseTime: t0.Add(time.Duration(i+1)*time.Minute - time.Millisecond),
		})
		price = c
	}
}

func newAnalyzer(store *repository.MarketStore, m domrepo.Metrics, fc *learning.Forecaster) *InstrumentAnalyzer {
	return NewInstrumentAnalyzer(AnalyzerConfig{
		Lookback1m:       600,
		Lookback5m:       200,
		Lookback10m:      120,
		DepthLevels:      20,
		PressureLookback: 5,
		Recommendation:   analytics.DefaultRecommendationConfig(),
	}, store, store, analytics.NewFusionEngine(), fc, m, nil)
}

func TestInstrumentAnalyzer_Analyze(t *testing.T) {
	store := repository.NewMarketStore(1000)
	seed(store, "BTCUSDT", 60, 0.2)
	store.PutTopOfBook("BTCUSDT", models.TopOfBook{Bid: 111.9, Ask: 112.1, BidQty: 5, AskQty: 3})
	store.PutDepth("BTCUSDT", models.DepthSnapshot{
		Bids: []models.BookLevel{{Price: 111.9, Qty: 6}},
		Asks: []models.BookLevel{{Price: 112.1, Qty: 2}},
	})
	m := newRecordingMetrics()

	snap, err := newAnalyzer(store, m, nil).Analyze(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	for _, tf := range []string{"1m", "5m", "10m"} {
		if snap.Timeframes[tf] == nil {
			t.Errorf("timeframe %s missing", tf)
		}
		if m.count(m.signals, tf) != 1 {
			t.Errorf("signal metric for %s = %d", tf, m.count(m.signals, tf))
		}
	}
	if snap.Extras.SpreadPct == nil || snap.Extras.Imbalance == nil {
		t.Fatalf("micro extras missing: %+v", snap.Extras)
	}
	if snap.Extras.LiquidityBiasPct == nil || *snap.Extras.LiquidityBiasPct != 50 {
		t.Errorf("liquidity bias = %v, want 50", snap.Extras.LiquidityBiasPct)
	}
	if snap.Extras.QuoteVolume1m == nil {
		t.Error("quote volume missing")
	}
	if snap.Extras.PredictedMinutes != nil || snap.Extras.NextUpProbability != nil {
		t.Error("forecasts must be absent without a forecaster")
	}
	if snap.Timeframes["1m"].Direction != models.DirectionUp {
		t.Errorf("rising series gave %s", snap.Timeframes["1m"].Direction)
	}
	switch snap.Recommendation.Action {
	case models.ActionBuy, models.ActionSell, models.ActionHold:
	default:
		t.Errorf("unexpected action %q", snap.Recommendation.Action)
	}
}

func TestInstrumentAnalyzer_NoHistory(t *testing.T) {
	store := repository.NewMarketStore(100)
	_, err := newAnalyzer(store, newRecordingMetrics(), nil).Analyze(context.Background(), "ETHUSDT")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestInstrumentAnalyzer_ShortHistory(t *testing.T) {
	store := repository.NewMarketStore(100)
	seed(store, "ETHUSDT", 3, 0.1)
	m := newRecordingMetrics()

	snap, err := newAnalyzer(store, m, nil).Analyze(context.Background(), "ETHUSDT")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(snap.Timeframes) != 0 {
		t.Errorf("timeframes = %v, want none", snap.Timeframes)
	}
	if snap.Recommendation.Action != models.ActionHold {
		t.Errorf("action = %s, want hold", snap.Recommendation.Action)
	}
	if m.count(m.unavailable, "fusion_1m") != 1 || m.count(m.unavailable, "book") != 1 {
		t.Errorf("unavailable = %v", m.unavailable)
	}
	if len(m.errors) != 0 {
		t.Errorf("data gaps must not count as errors: %v", m.errors)
	}
}

// stubAnalyzer returns a canned 5m output per symbol, failing for symbols in fail.
type stubAnalyzer struct {
	fail    map[string]error
	dir     map[string]models.Direction
	block   chan struct{}
	started chan string
}

func (s *stubAnalyzer) Analyze(_ context.Context, symbol string) (*models.InstrumentSnapshot, error) {
	if s.started != nil {
		s.started <- symbol
	}
	if s.block != nil {
		<-s.block
	}
	if err := s.fail[symbol]; err != nil {
		return nil, err
	}
	dir := s.dir[symbol]
	if dir == "" {
		dir = models.DirectionUp
	}
	return &models.InstrumentSnapshot{
		Symbol: symbol,
		Timeframes: map[string]*models.SignalOutput{
			"5m": {Timeframe: "5m", Direction: dir, Confidence: 0.5, Pressure: 1},
		},
	}, nil
}

type memorySink struct {
	mu        sync.Mutex
	snapshots []*models.InstrumentSnapshot
	summaries []*models.MarketSummary
}

func (s *memorySink) PublishSnapshot(_ context.Context, snap *models.InstrumentSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snap)
	return nil
}

func (s *memorySink) PublishSummary(_ context.Context, sum *models.MarketSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, sum)
	return nil
}

func TestCycleRunner_RunCycle(t *testing.T) {
	an := &stubAnalyzer{
		fail: map[string]error{"BAD": fmt.Errorf("boom")},
		dir:  map[string]models.Direction{"ETH": models.DirectionDown},
	}
	sink := &memorySink{}
	m := newRecordingMetrics()
	r := NewCycleRunner(CycleConfig{Interval: time.Second, Workers: 3}, []string{"eth", "BTC", "BAD", "btc", "SOL"}, an, sink, nil, m, nil)

	if got := r.Universe(); fmt.Sprint(got) != "[BAD BTC ETH SOL]" {
		t.Fatalf("universe = %v", got)
	}
	res := r.RunCycle(context.Background())

	if res.CycleID == "" {
		t.Fatal("empty cycle id")
	}
	if len(res.Snapshots) != 3 {
		t.Fatalf("snapshots = %d, want 3", len(res.Snapshots))
	}
	for i, want := range []string{"BTC", "ETH", "SOL"} {
		if res.Snapshots[i].Symbol != want {
			t.Errorf("snapshot %d = %s, want %s", i, res.Snapshots[i].Symbol, want)
		}
		if res.Snapshots[i].CycleID != res.CycleID {
			t.Errorf("snapshot %s not stamped with the cycle id", want)
		}
	}
	if fmt.Sprint(res.Failed) != "[BAD]" || len(res.Skipped) != 0 {
		t.Errorf("failed = %v skipped = %v", res.Failed, res.Skipped)
	}
	if m.count(m.errors, "analyze") != 1 {
		t.Errorf("analyze errors = %d", m.count(m.errors, "analyze"))
	}

	if len(sink.snapshots) != 3 || len(sink.summaries) != 1 {
		t.Fatalf("delivered %d snapshots and %d summaries", len(sink.snapshots), len(sink.summaries))
	}
	sum := sink.summaries[0]
	if sum.CycleID != res.CycleID || sum.Instruments != 3 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Trend != models.TrendBullish || sum.PressureLabel != models.PressureBuySide {
		t.Errorf("trend %s pressure %s", sum.Trend, sum.PressureLabel)
	}
}

func TestCycleRunner_EmptyCycleHasNoSummary(t *testing.T) {
	an := &stubAnalyzer{fail: map[string]error{"BTC": models.ErrNotFound}}
	sink := &memorySink{}
	m := newRecordingMetrics()
	r := NewCycleRunner(CycleConfig{Interval: time.Second, Workers: 1}, []string{"BTC"}, an, sink, nil, m, nil)

	res := r.RunCycle(context.Background())
	if res.Summary != nil || len(sink.summaries) != 0 {
		t.Fatal("summary published for a cycle without outputs")
	}
	if m.count(m.unavailable, "summary") != 1 || m.count(m.unavailable, "candles_1m") != 1 {
		t.Errorf("unavailable = %v", m.unavailable)
	}
	if len(m.errors) != 0 {
		t.Errorf("missing data counted as error: %v", m.errors)
	}
}

func TestCycleRunner_SkipsInstrumentInFlight(t *testing.T) {
	an := &stubAnalyzer{block: make(chan struct{}), started: make(chan string, 4)}
	sink := &memorySink{}
	r := NewCycleRunner(CycleConfig{Interval: time.Second, Workers: 1}, []string{"BTC"}, an, sink, nil, newRecordingMetrics(), nil)

	first := make(chan CycleResult)
	go func() { first <- r.RunCycle(context.Background()) }()
	<-an.started

	second := r.RunCycle(context.Background())
	if fmt.Sprint(second.Skipped) != "[BTC]" || len(second.Snapshots) != 0 {
		t.Fatalf("second cycle: skipped %v snapshots %d", second.Skipped, len(second.Snapshots))
	}

	close(an.block)
	res := <-first
	if len(res.Snapshots) != 1 {
		t.Fatalf("first cycle delivered %d snapshots", len(res.Snapshots))
	}
}

func TestCycleRunner_EvictsModelsOutsideUniverse(t *testing.T) {
	fc := learning.NewForecaster(learning.DefaultReversalConfig(), learning.DefaultNextMoveConfig(), 0)
	fc.Forecast("OLD", nil)
	fc.Forecast("BTC", nil)

	r := NewCycleRunner(CycleConfig{Interval: time.Second, Workers: 1}, []string{"BTC"}, &stubAnalyzer{}, &memorySink{}, fc, newRecordingMetrics(), nil)
	r.RunCycle(context.Background())

	if got := fc.Tracked(); fmt.Sprint(got) != "[BTC]" {
		t.Fatalf("tracked = %v, want [BTC]", got)
	}
}

func TestCycleRunner_PrunesInflightLocks(t *testing.T) {
	r := NewCycleRunner(CycleConfig{Interval: time.Second, Workers: 1}, []string{"BTC"}, &stubAnalyzer{}, &memorySink{}, nil, newRecordingMetrics(), nil)
	r.inflight.Store("OLD", &sync.Mutex{})
	busy := &sync.Mutex{}
	busy.Lock()
	r.inflight.Store("BUSY", busy)

	r.RunCycle(context.Background())

	if _, ok := r.inflight.Load("OLD"); ok {
		t.Error("idle lock outside the universe was kept")
	}
	if _, ok := r.inflight.Load("BUSY"); !ok {
		t.Error("held lock was dropped")
	}
	if _, ok := r.inflight.Load("BTC"); !ok {
		t.Error("universe lock missing")
	}

	busy.Unlock()
	r.RunCycle(context.Background())
	if _, ok := r.inflight.Load("BUSY"); ok {
		t.Error("released lock outside the universe was kept")
	}
}

func TestCycleRunner_RunStopsOnCancel(t *testing.T) {
	sink := &memorySink{}
	r := NewCycleRunner(CycleConfig{Interval: 10 * time.Millisecond, Workers: 1}, []string{"BTC"}, &stubAnalyzer{}, sink, nil, newRecordingMetrics(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	time.Sleep(35 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.summaries) < 2 {
		t.Errorf("summaries = %d, want at least 2", len(sink.summaries))
	}
}

func TestCandlesUseCase_GetLatest(t *testing.T) {
	store := repository.NewMarketStore(1000)
	seed(store, "BTCUSDT", 30, 0.1)
	uc := NewCandlesUseCase(store)

	tests := []struct {
		name string
		p    GetCandlesParams
		want int
		tf   string
	}{
		{"1m window", GetCandlesParams{Symbol: "btcusdt", Timeframe: domrepo.TF1m, N: 10}, 10, "1m"},
		{"5m resampled", GetCandlesParams{Symbol: "BTCUSDT", Timeframe: domrepo.TF5m, N: 100}, 6, "5m"},
		{"bad timeframe falls back", GetCandlesParams{Symbol: "BTCUSDT", Timeframe: "2h", N: 5}, 5, "1m"},
		{"zero n uses default", GetCandlesParams{Symbol: "BTCUSDT", Timeframe: domrepo.TF10m}, 3, "10m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := uc.GetLatest(context.Background(), tt.p)
			if err != nil {
				t.Fatalf("GetLatest: %v", err)
			}
			if res.Count != tt.want || len(res.Candles) != tt.want || res.Timeframe != tt.tf || res.Symbol != "BTCUSDT" {
				t.Errorf("got %s %s count %d", res.Symbol, res.Timeframe, res.Count)
			}
		})
	}

	if _, err := uc.GetLatest(context.Background(), GetCandlesParams{Symbol: "NOPE"}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown symbol err = %v", err)
	}
}

func TestCandlesUseCase_GetRange(t *testing.T) {
	store := repository.NewMarketStore(1000)
	seed(store, "BTCUSDT", 30, 0.1)
	uc := NewCandlesUseCase(store)
	from, to := t0.Add(5*time.Minute), t0.Add(15*time.Minute)

	res, err := uc.GetRange(context.Background(), GetCandlesParams{Symbol: "btcusdt", From: from, To: to})
	if err != nil {
		t.Fatalf("GetRange: %v", err)
	}
	if res.Count != 10 || !res.Candles[0].OpenTime.Equal(from) || !res.From.Equal(from) || !res.To.Equal(to) {
		t.Errorf("got count %d first %v range %v..%v", res.Count, res.Candles[0].OpenTime, res.From, res.To)
	}

	res, err = uc.GetRange(context.Background(), GetCandlesParams{Symbol: "BTCUSDT", N: 4, From: from, To: to})
	if err != nil || res.Count != 4 || !res.Candles[0].OpenTime.Equal(from) {
		t.Errorf("capped range: %+v, %v", res, err)
	}

	if _, err := uc.GetRange(context.Background(), GetCandlesParams{Symbol: "BTCUSDT", From: to, To: from}); !errors.Is(err, models.ErrInvalidRange) {
		t.Errorf("reversed range err = %v", err)
	}
	if _, err := uc.GetRange(context.Background(), GetCandlesParams{Symbol: "NOPE", From: from, To: to}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown symbol err = %v", err)
	}
}

func TestSignalUseCase_GetSignal(t *testing.T) {
	store := repository.NewMarketStore(1000)
	seed(store, "BTCUSDT", 40, -0.2)
	seed(store, "SHORT", 3, 0.1)
	uc := NewSignalUseCase(store, store, analytics.NewFusionEngine(), 20, 5)
	ctx := context.Background()

	res, err := uc.GetSignal(ctx, GetSignalParams{Symbol: "BTCUSDT", N: 300, Timeframe: domrepo.TF5m})
	if err != nil {
		t.Fatalf("GetSignal: %v", err)
	}
	if !res.Available || res.Signal == nil || res.Signal.Timeframe != "5m" {
		t.Fatalf("result = %+v", res)
	}
	if res.Signal.Direction != models.DirectionDown {
		t.Errorf("falling series gave %s", res.Signal.Direction)
	}
	if res.Signal.SpreadPct != nil {
		t.Error("spread set without a book")
	}

	short, err := uc.GetSignal(ctx, GetSignalParams{Symbol: "SHORT", N: 300, Timeframe: domrepo.TF1m})
	if err != nil {
		t.Fatalf("GetSignal short: %v", err)
	}
	if short.Available || short.Reason == "" {
		t.Errorf("short window result = %+v", short)
	}

	if _, err := uc.GetSignal(ctx, GetSignalParams{Symbol: "NONE", N: 10}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown symbol err = %v", err)
	}
}
