package api

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/internal/service/ratelimit"
	"FinSignal/internal/usecase"
	xhttp "FinSignal/pkg/http"
	xlogger "FinSignal/pkg/logger"
	"FinSignal/pkg/util"
)

// SignalsEchoHandler serves the delivered cycle records plus on-demand
// signal and candle queries.
type SignalsEchoHandler struct {
	logger   *xlogger.Logger
	store    domrepo.SnapshotStore
	signals  *usecase.SignalUseCase
	candles  *usecase.CandlesUseCase
	limiter  *ratelimit.Limiter
	universe func() []string
}

func NewSignalsEchoHandler(
	logger *xlogger.Logger,
	store domrepo.SnapshotStore,
	signals *usecase.SignalUseCase,
	candles *usecase.CandlesUseCase,
	limiter *ratelimit.Limiter,
	universe func() []string,
) *SignalsEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &SignalsEchoHandler{
		logger:   logger,
		store:    store,
		signals:  signals,
		candles:  candles,
		limiter:  limiter,
		universe: universe,
	}
}

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	var mw []echo.MiddlewareFunc
	if h.limiter != nil {
		mw = append(mw, h.limiter.Middleware())
	}
	g := e.Group("/api", mw...)
	g.GET("/universe", h.Universe)
	g.GET("/snapshots", h.Snapshots)
	g.GET("/snapshots/:symbol", h.Snapshot)
	g.GET("/summary", h.Summary)
	g.GET("/signal", h.Signal)
	g.GET("/candles", h.Candles)
}

// Universe lists the tracked symbols.
func (h *SignalsEchoHandler) Universe(c echo.Context) error {
	var symbols []string
	if h.universe != nil {
		symbols = h.universe()
	}
	return xhttp.SuccessResponse(c, map[string]any{"symbols": symbols})
}

// Snapshots returns the latest snapshot of every instrument, sorted by symbol.
func (h *SignalsEchoHandler) Snapshots(c echo.Context) error {
	res, err := h.store.LatestSnapshots(c.Request().Context())
	if err != nil {
		h.logger.Error("list snapshots", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if res == nil {
		res = []*models.InstrumentSnapshot{}
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) Snapshot(c echo.Context) error {
	req := &models.SnapshotRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.store.LatestSnapshot(c.Request().Context(), strings.ToUpper(req.Symbol))
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) Summary(c echo.Context) error {
	res, err := h.store.LatestSummary(c.Request().Context())
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Signal fuses one timeframe on demand. A window that is too short is still a
// 200 with available=false.
func (h *SignalsEchoHandler) Signal(c echo.Context) error {
	req := &models.SignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.signals.GetSignal(c.Request().Context(), usecase.GetSignalParams{
		Symbol:    req.Symbol,
		N:         req.N,
		Timeframe: domrepo.NormalizeTimeframe(req.TF),
	})
	if err != nil {
		h.logger.Debug("signal query failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	p := usecase.GetCandlesParams{
		Symbol:    req.Symbol,
		Timeframe: domrepo.NormalizeTimeframe(req.TF),
		N:         req.N,
	}
	var (
		res *usecase.GetCandlesResult
		err error
	)
	if req.From == "" && req.To == "" {
		res, err = h.candles.GetLatest(c.Request().Context(), p)
	} else {
		if p.From, p.To, err = candleRange(req, p.Timeframe, time.Now().UTC()); err != nil {
			return xhttp.AppErrorResponse(c, err)
		}
		res, err = h.candles.GetRange(c.Request().Context(), p)
	}
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=5")
	return xhttp.SuccessResponse(c, res)
}

// candleRange parses the requested bounds and aligns them to bar boundaries.
// A missing to means now; a missing from reaches back N bars from to.
func candleRange(req *models.CandlesRequest, tf domrepo.Timeframe, now time.Time) (time.Time, time.Time, error) {
	for name, raw := range map[string]string{"from": req.From, "to": req.To} {
		if _, ok := util.ParseTime(raw); raw != "" && !ok {
			return time.Time{}, time.Time{}, xhttp.BadRequestErrorf("invalid %s %q", name, raw)
		}
	}
	to := util.ParseTimeDefault(req.To, now)
	from := util.ParseTimeDefault(req.From, to.Add(-time.Duration(req.N)*tf.Duration()))
	from, to = util.AlignFromTo(from, to, tf.Duration())
	return from, to, nil
}
