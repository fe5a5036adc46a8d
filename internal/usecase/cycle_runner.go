package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/internal/service/metrics"
	"FinSignal/internal/services/analytics"
	"FinSignal/internal/services/learning"
	applogger "FinSignal/pkg/logger"
)

// Analyzer produces one instrument snapshot.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (*models.InstrumentSnapshot, error)
}

// CycleConfig controls the polling loop.
type CycleConfig struct {
	Interval time.Duration
	Workers  int
	Timeout  time.Duration
}

// CycleResult is what one cycle delivered.
type CycleResult struct {
	CycleID   string
	Snapshots []*models.InstrumentSnapshot
	Summary   *models.MarketSummary
	Skipped   []string
	Failed    []string
}

// CycleRunner computes the whole universe every interval, delivers every
// snapshot as soon as it is ready and closes the cycle with one summary.
// An instrument whose previous computation is still running is skipped, so
// at most one computation per instrument is ever in flight.
type CycleRunner struct {
	cfg        CycleConfig
	analyzer   Analyzer
	sink       domrepo.SnapshotSink
	forecaster *learning.Forecaster
	metrics    domrepo.Metrics
	log        *applogger.Logger
	now        func() time.Time

	mu       sync.RWMutex
	universe []string

	inflight sync.Map // symbol -> *sync.Mutex
}

func NewCycleRunner(
	cfg CycleConfig,
	universe []string,
	analyzer Analyzer,
	sink domrepo.SnapshotSink,
	forecaster *learning.Forecaster,
	m domrepo.Metrics,
	log *applogger.Logger,
) *CycleRunner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if log == nil {
		log = applogger.Nop()
	}
	metrics.Register()
	r := &CycleRunner{
		cfg:        cfg,
		analyzer:   analyzer,
		sink:       sink,
		forecaster: forecaster,
		metrics:    m,
		log:        log,
		now:        time.Now,
	}
	r.SetUniverse(universe)
	return r
}

// SetUniverse replaces the tracked symbols. Models of symbols that leave are
// evicted at the start of the next cycle.
func (r *CycleRunner) SetUniverse(symbols []string) {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if _, dup := seen[s]; s == "" || dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	r.mu.Lock()
	r.universe = out
	r.mu.Unlock()
}

// Universe returns the tracked symbols.
func (r *CycleRunner) Universe() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.universe...)
}

// Run executes a cycle immediately and then every interval until ctx ends.
func (r *CycleRunner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	r.log.Info("cycle runner started",
		applogger.Duration("interval_ms", r.cfg.Interval),
		applogger.Strings("symbols", r.Universe()),
	)
	for {
		r.RunCycle(ctx)
		select {
		case <-ctx.Done():
			r.log.Info("cycle runner stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunCycle computes every instrument once and delivers the results.
func (r *CycleRunner) RunCycle(ctx context.Context) CycleResult {
	start := time.Now()
	universe := r.Universe()
	res := CycleResult{CycleID: uuid.NewString()}
	r.evict(universe)

	type outcome struct {
		symbol string
		snap   *models.InstrumentSnapshot
		status string
	}
	jobs := make(chan string)
	results := make(chan outcome, len(universe))
	var wg sync.WaitGroup
	for w := 0; w < min(r.cfg.Workers, max(len(universe), 1)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range jobs {
				snap, status := r.analyzeOne(ctx, res.CycleID, sym)
				results <- outcome{sym, snap, status}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, sym := range universe {
			select {
			case jobs <- sym:
			case <-ctx.Done():
				return
			}
		}
	}()
	wg.Wait()
	close(results)

	for o := range results {
		switch o.status {
		case "ok":
			res.Snapshots = append(res.Snapshots, o.snap)
		case "skipped":
			res.Skipped = append(res.Skipped, o.symbol)
		default:
			res.Failed = append(res.Failed, o.symbol)
		}
	}
	sort.Slice(res.Snapshots, func(i, j int) bool { return res.Snapshots[i].Symbol < res.Snapshots[j].Symbol })

	if sum, err := analytics.Summarize(res.Snapshots, r.now().UTC()); err == nil {
		sum.CycleID = res.CycleID
		res.Summary = &sum
		if err := r.sink.PublishSummary(ctx, &sum); err != nil {
			r.metrics.RecordError("publish_summary")
			r.log.Warn("summary delivery failed", applogger.String("cycle_id", res.CycleID), applogger.Error(err))
		}
	} else if errors.Is(err, models.ErrInsufficientData) {
		r.metrics.RecordUnavailable("summary")
	}

	metrics.CycleInstruments.WithLabelValues("ok").Set(float64(len(res.Snapshots)))
	metrics.CycleInstruments.WithLabelValues("skipped").Set(float64(len(res.Skipped)))
	metrics.CycleInstruments.WithLabelValues("failed").Set(float64(len(res.Failed)))
	r.metrics.RecordLatency("cycle", time.Since(start).Seconds())
	r.log.Debug("cycle done",
		applogger.String("cycle_id", res.CycleID),
		applogger.Int("ok", len(res.Snapshots)),
		applogger.Int("skipped", len(res.Skipped)),
		applogger.Int("failed", len(res.Failed)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return res
}

func (r *CycleRunner) analyzeOne(ctx context.Context, cycleID, symbol string) (*models.InstrumentSnapshot, string) {
	lock, _ := r.inflight.LoadOrStore(symbol, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	if !mu.TryLock() {
		r.log.Debug("instrument still in flight", applogger.String("symbol", symbol))
		return nil, "skipped"
	}
	defer mu.Unlock()

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}
	start := time.Now()
	snap, err := r.analyzer.Analyze(ctx, symbol)
	r.metrics.RecordLatency("instrument", time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			r.metrics.RecordUnavailable("candles_1m")
			r.log.Debug("no market data yet", applogger.String("symbol", symbol))
		} else {
			r.metrics.RecordError("analyze")
			r.log.Warn("instrument failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
		return nil, "failed"
	}
	snap.CycleID = cycleID
	if err := r.sink.PublishSnapshot(ctx, snap); err != nil {
		r.metrics.RecordError("publish_snapshot")
		r.log.Warn("snapshot delivery failed", applogger.String("symbol", symbol), applogger.Error(err))
	}
	return snap, "ok"
}

// evict drops per-instrument state for symbols outside universe. An
// in-flight lock is only released once its analysis has finished.
func (r *CycleRunner) evict(universe []string) {
	keep := make(map[string]struct{}, len(universe))
	for _, s := range universe {
		keep[s] = struct{}{}
	}
	r.inflight.Range(func(k, v any) bool {
		if _, ok := keep[k.(string)]; ok {
			return true
		}
		if mu := v.(*sync.Mutex); mu.TryLock() {
			r.inflight.Delete(k)
			mu.Unlock()
		}
		return true
	})

	if r.forecaster == nil {
		return
	}
	if evicted := r.forecaster.Retain(universe); len(evicted) > 0 {
		metrics.ModelsEvicted.Add(float64(len(evicted)))
		r.log.Info("models evicted", applogger.Strings("symbols", evicted))
	}
	metrics.ModelsTracked.Set(float64(len(r.forecaster.Tracked())))
}
