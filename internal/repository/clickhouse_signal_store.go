package repository

import (
	"context"
	"fmt"
	"sort"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	pkgch "FinSignal/pkg/clickhouse"
)

// SignalSchema creates the history tables written by CHSignalStore.
func SignalSchema(signalTable, summaryTable string) []string {
	return []string{
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            cycle_id           String,
            symbol             LowCardinality(String),
            timeframe          LowCardinality(String),
            ts                 DateTime64(3, 'UTC'),
            direction          LowCardinality(String),
            confidence         Float64,
            price              Float64,
            wave               LowCardinality(String),
            wave_trend         LowCardinality(String),
            trend_phase        LowCardinality(String),
            trend_strength     Float64,
            rsi                Nullable(Float64),
            atr                Nullable(Float64),
            target_pct         Nullable(Float64),
            spread_pct         Nullable(Float64),
            imbalance          Nullable(Float64),
            liquidity_bias_pct Nullable(Float64),
            pressure           Int8,
            action             LowCardinality(String),
            confidence_pct     Float64,
            duration_minutes   UInt16
        ) ENGINE = MergeTree
        PARTITION BY toYYYYMMDD(ts)
        ORDER BY (symbol, timeframe, ts)`, signalTable),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            cycle_id               String,
            ts                     DateTime64(3, 'UTC'),
            trend                  LowCardinality(String),
            avg_confidence_pct     Float64,
            avg_liquidity_bias_pct Float64,
            avg_spread_pct         Float64,
            pressure_label         LowCardinality(String),
            instruments            UInt32
        ) ENGINE = MergeTree
        ORDER BY ts`, summaryTable),
	}
}

// CHSignalStore persists every delivered snapshot (one row per timeframe
// output) and summary as history.
type CHSignalStore struct {
	ch           *pkgch.Client
	signalTable  string
	summaryTable string
}

func NewCHSignalStore(ch *pkgch.Client, signalTable, summaryTable string) *CHSignalStore {
	return &CHSignalStore{ch: ch, signalTable: signalTable, summaryTable: summaryTable}
}

var _ domrepo.SnapshotSink = (*CHSignalStore)(nil)

func (s *CHSignalStore) PublishSnapshot(ctx context.Context, snap *models.InstrumentSnapshot) error {
	q := fmt.Sprintf(`INSERT INTO %s (cycle_id, symbol, timeframe, ts, direction, confidence, price,
        wave, wave_trend, trend_phase, trend_strength, rsi, atr, target_pct, spread_pct, imbalance,
        liquidity_bias_pct, pressure, action, confidence_pct, duration_minutes)`, s.signalTable)
	if err := s.ch.InsertBatch(ctx, q, signalRows(snap)); err != nil {
		return fmt.Errorf("insert signals %s: %w", snap.Symbol, err)
	}
	return nil
}

func (s *CHSignalStore) PublishSummary(ctx context.Context, sum *models.MarketSummary) error {
	q := fmt.Sprintf(`INSERT INTO %s (cycle_id, ts, trend, avg_confidence_pct, avg_liquidity_bias_pct,
        avg_spread_pct, pressure_label, instruments)`, s.summaryTable)
	row := []any{
		sum.CycleID, sum.Timestamp, string(sum.Trend), sum.AvgConfidencePct, sum.AvgLiquidityBiasPct,
		sum.AvgSpreadPct, string(sum.PressureLabel), uint32(sum.Instruments),
	}
	if err := s.ch.InsertBatch(ctx, q, [][]any{row}); err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}
	return nil
}

// signalRows flattens a snapshot, ordered by timeframe for stable inserts.
// Every row carries the instrument recommendation.
func signalRows(snap *models.InstrumentSnapshot) [][]any {
	tfs := make([]string, 0, len(snap.Timeframes))
	for tf, out := range snap.Timeframes {
		if out != nil {
			tfs = append(tfs, tf)
		}
	}
	sort.Strings(tfs)

	rec := snap.Recommendation
	rows := make([][]any, 0, len(tfs))
	for _, tf := range tfs {
		o := snap.Timeframes[tf]
		rows = append(rows, []any{
			snap.CycleID, snap.Symbol, tf, o.Timestamp, string(o.Direction), o.Confidence, o.Price,
			string(o.Wave), string(o.WaveTrend), string(o.Phase), o.PhaseStrength,
			o.RSI, o.ATR, o.TargetPct, o.SpreadPct, o.Imbalance, o.LiquidityBiasPct,
			int8(o.Pressure), string(rec.Action), rec.ConfidencePct, uint16(rec.DurationMinutes),
		})
	}
	return rows
}
