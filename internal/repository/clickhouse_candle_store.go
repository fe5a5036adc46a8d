package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/internal/services/features"
	pkgch "FinSignal/pkg/clickhouse"
	applogger "FinSignal/pkg/logger"
)

// CandleSchema creates the 1m candle table read by CHCandleStore.
func CandleSchema(table string) []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            symbol     LowCardinality(String),
            open_time  DateTime64(3, 'UTC'),
            close_time DateTime64(3, 'UTC'),
            open       Float64,
            high       Float64,
            low        Float64,
            close      Float64,
            volume     Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, open_time)`, table)}
}

// CHCandleStore implements CandleSource backed by ClickHouse. 5m bars are
// aggregated in SQL, 10m bars are resampled from 1m in process so both keep
// the close-time bucketing used everywhere else.
type CHCandleStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHCandleStore(ch *pkgch.Client, table string, l *applogger.Logger) *CHCandleStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHCandleStore{db: ch.DB(), table: table, l: l}
}

var _ domrepo.CandleSource = (*CHCandleStore)(nil)

const (
	rawCandleCols = `symbol, open_time, open, high, low, close, volume, close_time`

	// FINAL collapses ReplacingMergeTree duplicates of an updated bar.
	latest1mTpl = `
        SELECT ` + rawCandleCols + `
        FROM %s FINAL
        WHERE symbol = ?
        ORDER BY open_time DESC
        LIMIT ?`

	range1mTpl = `
        SELECT ` + rawCandleCols + `
        FROM %s FINAL
        WHERE symbol = ? AND close_time >= ? AND close_time <= ?
        ORDER BY open_time ASC`

	agg5mCols = `
            any(symbol),
            min(open_time),
            argMin(open, open_time),
            max(high),
            min(low),
            argMax(close, open_time),
            sum(volume),
            max(close_time)`

	latest5mTpl = `
        SELECT` + agg5mCols + `
        FROM %s FINAL
        WHERE symbol = ?
        GROUP BY toStartOfInterval(close_time, INTERVAL 5 MINUTE) AS bucket
        ORDER BY bucket DESC
        LIMIT ?`

	range5mTpl = `
        SELECT` + agg5mCols + `
        FROM %s FINAL
        WHERE symbol = ? AND close_time >= ? AND close_time <= ?
        GROUP BY toStartOfInterval(close_time, INTERVAL 5 MINUTE) AS bucket
        ORDER BY bucket ASC`
)

func (s *CHCandleStore) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	switch tf {
	case domrepo.TF5m:
		out, err := s.query(ctx, "latest_5m", fmt.Sprintf(latest5mTpl, s.table), symbol, n)
		reverse(out)
		return out, err
	case domrepo.TF10m:
		// one extra bucket absorbs a partial leading bucket
		out, err := s.query(ctx, "latest_1m", fmt.Sprintf(latest1mTpl, s.table), symbol, (n+1)*10)
		if err != nil {
			return nil, err
		}
		reverse(out)
		return features.Resample10m(out, n), nil
	default:
		out, err := s.query(ctx, "latest_1m", fmt.Sprintf(latest1mTpl, s.table), symbol, n)
		reverse(out)
		return out, err
	}
}

func (s *CHCandleStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	switch tf {
	case domrepo.TF5m:
		return s.query(ctx, "range_5m", fmt.Sprintf(range5mTpl, s.table), symbol, from, to)
	case domrepo.TF10m:
		out, err := s.query(ctx, "range_1m", fmt.Sprintf(range1mTpl, s.table), symbol, from, to)
		if err != nil {
			return nil, err
		}
		return features.Resample10m(out, 0), nil
	default:
		return s.query(ctx, "range_1m", fmt.Sprintf(range1mTpl, s.table), symbol, from, to)
	}
}

func (s *CHCandleStore) query(ctx context.Context, op, q string, args ...any) ([]models.Candle, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse candle query error", applogger.String("op", op), applogger.String("table", s.table), applogger.Error(err))
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	var out []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Symbol, &c.OpenTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.CloseTime); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		c.OpenTime, c.CloseTime = c.OpenTime.UTC(), c.CloseTime.UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse candle query ok",
		applogger.String("op", op),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func reverse(cs []models.Candle) {
	for i, j := 0, len(cs)-1; i < j; i, j = i+1, j-1 {
		cs[i], cs[j] = cs[j], cs[i]
	}
}
