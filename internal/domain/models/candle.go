package models

import "time"

// Candle is an OHLCV bar. Sequences are ordered by CloseTime ascending.
type Candle struct {
	Symbol    string    `json:"symbol,omitempty"`
	OpenTime  time.Time `json:"open_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	CloseTime time.Time `json:"close_time"`
}

// Body is the signed close-open distance.
func (c Candle) Body() float64 { return c.Close - c.Open }

// TopOfBook is the best bid/ask with resting quantities.
type TopOfBook struct {
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	BidQty float64 `json:"bid_qty"`
	AskQty float64 `json:"ask_qty"`
}

// Valid reports whether the book is usable: both sides positive and not crossed.
func (b TopOfBook) Valid() bool {
	return b.Bid > 0 && b.Ask > 0 && b.Ask > b.Bid
}

// BookLevel is one price level of an order book side.
type BookLevel struct {
	Price float64 `json:"price"`
	Qty   float64 `json:"qty"`
}

// DepthSnapshot holds the first levels of both book sides.
type DepthSnapshot struct {
	Bids []BookLevel `json:"bids"`
	Asks []BookLevel `json:"asks"`
}
