package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
)

// Client manages ClickHouse connection pool.
type Client struct {
	db *sql.DB
}

// NewClient creates a ClickHouse client and pings the server.
func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := &ClientConfig{
		Port:            9000,
		Database:        "default",
		User:            "default",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}

	db, err := sql.Open("clickhouse", buildDSN(*cfg))
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	return &Client{db: db}, nil
}

// DB returns *sql.DB for direct use.
func (c *Client) DB() *sql.DB {
	return c.db
}

// Health performs health check.
func (c *Client) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes connection pool.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// InitSchema runs idempotent DDL statements in order.
func (c *Client) InitSchema(ctx context.Context, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// InsertBatch sends rows as one block. The driver buffers prepared
// executions inside a transaction and flushes them on commit.
func (c *Client) InsertBatch(ctx context.Context, query string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append batch: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

func buildDSN(cfg ClientConfig) string {
	scheme := "clickhouse"
	if cfg.UseHTTP {
		scheme = "http"
	}
	u := url.URL{
		Scheme: scheme,
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Path:   "/" + cfg.Database,
	}

	q := url.Values{}
	if cfg.DialTimeout > 0 {
		q.Set("dial_timeout", cfg.DialTimeout.String())
	}
	if cfg.ReadTimeout > 0 {
		q.Set("read_timeout", cfg.ReadTimeout.String())
	}
	// write_timeout stays client-side; some server versions reject it.
	if cfg.MaxExecTime > 0 {
		q.Set("max_execution_time", strconv.Itoa(int(cfg.MaxExecTime.Seconds())))
	}
	if cfg.AsyncInsert {
		q.Set("async_insert", "1")
		if cfg.WaitForAsync {
			q.Set("wait_for_async_insert", "1")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
