package models

import "time"

// Direction is the binary output of every directional stage.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Sign returns +1 for Up and -1 for Down.
func (d Direction) Sign() float64 {
	if d == DirectionUp {
		return 1
	}
	return -1
}

// DirectionOf maps a score to a direction; zero counts as Up.
func DirectionOf(score float64) Direction {
	if score >= 0 {
		return DirectionUp
	}
	return DirectionDown
}

type WaveLabel string

const (
	Wave1         WaveLabel = "1"
	Wave2         WaveLabel = "2"
	Wave3         WaveLabel = "3"
	Wave4         WaveLabel = "4"
	Wave5         WaveLabel = "5"
	WaveA         WaveLabel = "A"
	WaveB         WaveLabel = "B"
	WaveC         WaveLabel = "C"
	WaveUndefined WaveLabel = "undefined"
)

// WaveKind tells an impulse count from a corrective one.
type WaveKind string

const (
	WaveKindImpulse    WaveKind = "impulse"
	WaveKindCorrection WaveKind = "correction"
	WaveKindUndefined  WaveKind = "undefined"
)

type WaveTrend string

const (
	WaveTrendRising       WaveTrend = "rising"
	WaveTrendFalling      WaveTrend = "falling"
	WaveTrendUndetermined WaveTrend = "undetermined"
)

type TrendPhase string

const (
	PhaseStart      TrendPhase = "start"
	PhaseInProgress TrendPhase = "in_progress"
	PhaseEnd        TrendPhase = "end"
	PhaseNeutral    TrendPhase = "neutral"
)

type PhaseColor string

const (
	ColorYellow PhaseColor = "yellow"
	ColorGreen  PhaseColor = "green"
	ColorRed    PhaseColor = "red"
	ColorGray   PhaseColor = "gray"
)

// Pivot is a collapsed swing extremum inside a candle window.
type Pivot struct {
	Index int       `json:"index"`
	Kind  PivotKind `json:"kind"`
	Price float64   `json:"price"`
}

type PivotKind string

const (
	PivotHigh PivotKind = "high"
	PivotLow  PivotKind = "low"
)

// SignalOutput is the fused result for one instrument on one timeframe.
// Pointer fields are nil when the producing stage had insufficient data.
type SignalOutput struct {
	Timeframe        string     `json:"timeframe"`
	Direction        Direction  `json:"direction"`
	Confidence       float64    `json:"confidence"`
	Price            float64    `json:"price"`
	Timestamp        time.Time  `json:"timestamp"`
	Wave             WaveLabel  `json:"wave"`
	WaveKind         WaveKind   `json:"wave_kind"`
	WaveTrend        WaveTrend  `json:"wave_trend"`
	Phase            TrendPhase `json:"trend_phase"`
	PhaseColor       PhaseColor `json:"trend_color"`
	PhaseStrength    float64    `json:"trend_strength"`
	RSI              *float64   `json:"rsi"`
	ATR              *float64   `json:"atr"`
	TargetPct        *float64   `json:"target_pct"`
	SpreadPct        *float64   `json:"spread_pct"`
	Imbalance        *float64   `json:"imbalance"`
	LiquidityBiasPct *float64   `json:"liquidity_bias_pct"`
	Pressure         int        `json:"pressure"`
}

// InstrumentExtras carries the per-instrument values shared by all timeframes.
type InstrumentExtras struct {
	SpreadPct         *float64 `json:"spread_pct"`
	Imbalance         *float64 `json:"imbalance"`
	QuoteVolume1m     *float64 `json:"quote_volume_1m"`
	LiquidityBiasPct  *float64 `json:"liquidity_bias_pct"`
	Pressure          int      `json:"pressure"`
	PredictedMinutes  *float64 `json:"predicted_minutes"`
	NextUpProbability *float64 `json:"next_up_probability"`
}

// InstrumentSnapshot is everything one cycle produced for a single instrument.
type InstrumentSnapshot struct {
	CycleID        string                   `json:"cycle_id"`
	Symbol         string                   `json:"symbol"`
	Timeframes     map[string]*SignalOutput `json:"timeframes"`
	Extras         InstrumentExtras         `json:"extras"`
	Recommendation Recommendation           `json:"recommendation"`
	Timestamp      time.Time                `json:"timestamp"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
