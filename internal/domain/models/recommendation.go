package models

import "time"

// Action is the discrete trade suggestion. Labeling for humans is left to clients.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

type Recommendation struct {
	Action          Action    `json:"action"`
	Timeframe       string    `json:"timeframe"`
	ConfidencePct   float64   `json:"confidence_pct"`
	DurationMinutes int       `json:"duration_minutes"`
	Timestamp       time.Time `json:"timestamp"`
}

type MarketTrend string

const (
	TrendBullish MarketTrend = "bullish"
	TrendBearish MarketTrend = "bearish"
)

type PressureLabel string

const (
	PressureBuySide  PressureLabel = "buy_side_dominant"
	PressureSellSide PressureLabel = "sell_side_dominant"
	PressureNeutral  PressureLabel = "neutral"
)

// MarketSummary rolls the 5m outputs of the whole universe into one record.
type MarketSummary struct {
	CycleID             string        `json:"cycle_id"`
	Trend               MarketTrend   `json:"trend"`
	AvgConfidencePct    float64       `json:"avg_confidence_pct"`
	AvgLiquidityBiasPct float64       `json:"avg_liquidity_bias_pct"`
	AvgSpreadPct        float64       `json:"avg_spread_pct"`
	PressureLabel       PressureLabel `json:"pressure_label"`
	Instruments         int           `json:"instruments"`
	Timestamp           time.Time     `json:"timestamp"`
}
