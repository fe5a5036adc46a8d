package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	pkgkafka "FinSignal/pkg/kafka"
	"FinSignal/pkg/util"
)

// MarketDataHandler decodes market-data messages published by the
// acquisition side and writes them to the market store. Three payload kinds
// are accepted, told apart by their fields:
//
//	kline:      {"s":"BTCUSDT","k":{"t":..,"T":..,"o":"..","h":"..","l":"..","c":"..","v":".."}}
//	bookTicker: {"s":"BTCUSDT","b":"..","B":"..","a":"..","A":".."}
//	depth:      {"s":"BTCUSDT","bids":[["p","q"],..],"asks":[["p","q"],..]}
//
// Numbers may be JSON strings or numbers. When "s" is absent the message key
// is the symbol.
type MarketDataHandler struct {
	writer  domrepo.MarketDataWriter
	metrics domrepo.Metrics
}

func NewMarketDataHandler(writer domrepo.MarketDataWriter, metrics domrepo.Metrics) *MarketDataHandler {
	return &MarketDataHandler{writer: writer, metrics: metrics}
}

var _ pkgkafka.MessageHandler = (*MarketDataHandler)(nil)

type wireKline struct {
	OpenTime  int64           `json:"t"`
	CloseTime int64           `json:"T"`
	Open      decimal.Decimal `json:"o"`
	High      decimal.Decimal `json:"h"`
	Low       decimal.Decimal `json:"l"`
	Close     decimal.Decimal `json:"c"`
	Volume    decimal.Decimal `json:"v"`

	// encoding/json matches keys case-insensitively; these catch the
	// exchange's "L" and "V" fields before they land in Low and Volume.
	LastTradeID  json.RawMessage `json:"L"`
	TakerBuyBase json.RawMessage `json:"V"`
}

type wireMessage struct {
	Symbol string               `json:"s"`
	Kline  *wireKline           `json:"k"`
	Bid    *decimal.Decimal     `json:"b"`
	BidQty *decimal.Decimal     `json:"B"`
	Ask    *decimal.Decimal     `json:"a"`
	AskQty *decimal.Decimal     `json:"A"`
	Bids   [][2]decimal.Decimal `json:"bids"`
	Asks   [][2]decimal.Decimal `json:"asks"`
}

func (h *MarketDataHandler) Handle(_ context.Context, topic string, key, value []byte) error {
	var m wireMessage
	if err := json.Unmarshal(value, &m); err != nil {
		h.metrics.RecordError("market_decode")
		return fmt.Errorf("decode %s message: %w", topic, err)
	}
	symbol := strings.ToUpper(strings.TrimSpace(m.Symbol))
	if symbol == "" {
		symbol = strings.ToUpper(strings.TrimSpace(string(key)))
	}
	if symbol == "" {
		h.metrics.RecordError("market_symbol")
		return fmt.Errorf("%s message without symbol", topic)
	}

	switch {
	case m.Kline != nil:
		k := m.Kline
		c := models.Candle{
			Symbol:    symbol,
			OpenTime:  util.FromUnix(k.OpenTime),
			CloseTime: util.FromUnix(k.CloseTime),
			Open:      k.Open.InexactFloat64(),
			High:      k.High.InexactFloat64(),
			Low:       k.Low.InexactFloat64(),
			Close:     k.Close.InexactFloat64(),
			Volume:    k.Volume.InexactFloat64(),
		}
		if c.CloseTime.Before(c.OpenTime) || c.High < c.Low {
			h.metrics.RecordError("market_candle")
			return fmt.Errorf("malformed candle for %s", symbol)
		}
		h.writer.PutCandle(symbol, c)
		h.metrics.RecordLatency("ingest_lag", time.Since(c.CloseTime).Seconds())
	case m.Bid != nil && m.Ask != nil:
		h.writer.PutTopOfBook(symbol, models.TopOfBook{
			Bid:    m.Bid.InexactFloat64(),
			Ask:    m.Ask.InexactFloat64(),
			BidQty: floatOrZero(m.BidQty),
			AskQty: floatOrZero(m.AskQty),
		})
	case m.Bids != nil || m.Asks != nil:
		h.writer.PutDepth(symbol, models.DepthSnapshot{Bids: levels(m.Bids), Asks: levels(m.Asks)})
	default:
		h.metrics.RecordError("market_kind")
		return fmt.Errorf("unrecognised %s message for %s", topic, symbol)
	}
	return nil
}

func floatOrZero(d *decimal.Decimal) float64 {
	if d == nil {
		return 0
	}
	return d.InexactFloat64()
}

func levels(raw [][2]decimal.Decimal) []models.BookLevel {
	out := make([]models.BookLevel, len(raw))
	for i, l := range raw {
		out[i] = models.BookLevel{Price: l[0].InexactFloat64(), Qty: l[1].InexactFloat64()}
	}
	return out
}
