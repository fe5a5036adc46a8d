package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"FinSignal/internal/domain/models"
	"FinSignal/internal/repository"
	"FinSignal/internal/service/ratelimit"
	"FinSignal/internal/services/analytics"
	"FinSignal/internal/usecase"
	"FinSignal/pkg/cache"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) (*echo.Echo, *repository.CacheSnapshotStore) {
	t.Helper()
	market := repository.NewMarketStore(500)
	price := 100.0
	for i := 0; i < 40; i++ {
		o, c := price, price+0.1
		market.PutCandle("BTCUSDT", models.Candle{
			OpenTime:  t0.Add(time.Duration(i) * time.Minute),
			Open:      o,
			High:      math.Max(o, c) + 0.2,
			Low:       math.Min(o, c) - 0.2,
			Close:     c,
			Volume:    500,
			CloseTime: t0.Add(time.Duration(i+1)*time.Minute - time.Millisecond),
		})
		price = c
	}
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })
	store := repository.NewCacheSnapshotStore(mem, time.Minute)

	engine := analytics.NewFusionEngine()
	h := NewSignalsEchoHandler(nil, store,
		usecase.NewSignalUseCase(market, market, engine, 20, 5),
		usecase.NewCandlesUseCase(market),
		limiter,
		func() []string { return []string{"BTCUSDT"} },
	)
	e := echo.New()
	h.RegisterRoutes(e)
	return e, store
}

func do(e *echo.Echo, target string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestSignalsEchoHandler_Routes(t *testing.T) {
	e, store := newTestServer(t, nil)
	ctx := context.Background()
	_ = store.PublishSnapshot(ctx, &models.InstrumentSnapshot{CycleID: "c1", Symbol: "BTCUSDT"})
	_ = store.PublishSummary(ctx, &models.MarketSummary{CycleID: "c1", Trend: models.TrendBullish, Instruments: 1})

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"universe", "/api/universe", http.StatusOK},
		{"snapshots", "/api/snapshots", http.StatusOK},
		{"snapshot lowercase", "/api/snapshots/btcusdt", http.StatusOK},
		{"snapshot unknown", "/api/snapshots/ETHUSDT", http.StatusNotFound},
		{"summary", "/api/summary", http.StatusOK},
		{"signal", "/api/signal?symbol=BTCUSDT&tf=5m", http.StatusOK},
		{"signal missing symbol", "/api/signal", http.StatusBadRequest},
		{"signal bad timeframe", "/api/signal?symbol=BTCUSDT&tf=1h", http.StatusBadRequest},
		{"signal n too small", "/api/signal?symbol=BTCUSDT&n=2", http.StatusBadRequest},
		{"signal unknown symbol", "/api/signal?symbol=NOPE", http.StatusNotFound},
		{"candles", "/api/candles?symbol=BTCUSDT&n=10", http.StatusOK},
		{"candles unknown symbol", "/api/candles?symbol=NOPE", http.StatusNotFound},
		{"candles range", "/api/candles?symbol=BTCUSDT&from=2024-03-01T00:10:00Z&to=2024-03-01T00:20:00Z", http.StatusOK},
		{"candles bad from", "/api/candles?symbol=BTCUSDT&from=yesterday", http.StatusBadRequest},
		{"candles reversed range", "/api/candles?symbol=BTCUSDT&from=1709252400&to=1709251800", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(e, tt.target)
			if rec.Code != tt.status || env.Status != tt.status {
				t.Fatalf("status = %d (body %d), want %d: %s", rec.Code, env.Status, tt.status, rec.Body.String())
			}
		})
	}
}

func TestSignalsEchoHandler_Payloads(t *testing.T) {
	e, store := newTestServer(t, nil)
	_ = store.PublishSnapshot(context.Background(), &models.InstrumentSnapshot{CycleID: "c9", Symbol: "BTCUSDT"})

	_, env := do(e, "/api/snapshots")
	var snaps []models.InstrumentSnapshot
	if err := json.Unmarshal(env.Data, &snaps); err != nil || len(snaps) != 1 || snaps[0].CycleID != "c9" {
		t.Fatalf("snapshots = %s, err = %v", env.Data, err)
	}

	_, env = do(e, "/api/candles?symbol=btcusdt&n=10&tf=1m")
	var candles usecase.GetCandlesResult
	if err := json.Unmarshal(env.Data, &candles); err != nil {
		t.Fatal(err)
	}
	if candles.Symbol != "BTCUSDT" || candles.Count != 10 {
		t.Errorf("candles = %+v", candles)
	}

	_, env = do(e, "/api/signal?symbol=BTCUSDT")
	var sig usecase.SignalResult
	if err := json.Unmarshal(env.Data, &sig); err != nil {
		t.Fatal(err)
	}
	if !sig.Available || sig.Signal == nil || sig.Timeframe != "1m" {
		t.Errorf("signal = %+v", sig)
	}
}

func TestSignalsEchoHandler_ShortWindowIsNotAnError(t *testing.T) {
	e, _ := newTestServer(t, nil)
	rec, env := do(e, "/api/signal?symbol=BTCUSDT&tf=10m&n=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var sig usecase.SignalResult
	if err := json.Unmarshal(env.Data, &sig); err != nil {
		t.Fatal(err)
	}
	if sig.Available || sig.Reason == "" {
		t.Errorf("signal = %+v", sig)
	}
}

func TestSignalsEchoHandler_EmptyStore(t *testing.T) {
	e, _ := newTestServer(t, nil)
	if rec, env := do(e, "/api/snapshots"); rec.Code != http.StatusOK || string(env.Data) != "[]" {
		t.Errorf("snapshots = %d %s", rec.Code, env.Data)
	}
	if rec, _ := do(e, "/api/summary"); rec.Code != http.StatusNotFound {
		t.Errorf("summary status = %d", rec.Code)
	}
}

func TestSignalsEchoHandler_RateLimited(t *testing.T) {
	e, _ := newTestServer(t, ratelimit.New(0.001, 2))
	for i := 0; i < 2; i++ {
		if rec, _ := do(e, "/api/universe"); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	if rec, _ := do(e, "/api/universe"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
}

func TestSignalsEchoHandler_CandleRange(t *testing.T) {
	e, _ := newTestServer(t, nil)
	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"rfc3339", "/api/candles?symbol=BTCUSDT&from=2024-03-01T00:10:00Z&to=2024-03-01T00:20:00Z", 10},
		{"unaligned bounds", "/api/candles?symbol=BTCUSDT&from=2024-03-01T00:10:30Z&to=2024-03-01T00:20:45Z", 10},
		{"unix seconds and millis", "/api/candles?symbol=BTCUSDT&from=1709251800&to=1709252400000", 10},
		{"capped by n", "/api/candles?symbol=BTCUSDT&from=1709251800&to=1709252400&n=3", 3},
		{"five minute bars", "/api/candles?symbol=BTCUSDT&tf=5m&from=2024-03-01T00:00:00Z&to=2024-03-01T01:00:00Z", 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(e, tt.target)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}
			var res usecase.GetCandlesResult
			if err := json.Unmarshal(env.Data, &res); err != nil {
				t.Fatal(err)
			}
			if res.Count != tt.want || res.From == nil || res.To == nil {
				t.Errorf("count = %d, want %d (range %v..%v)", res.Count, tt.want, res.From, res.To)
			}
		})
	}
}
