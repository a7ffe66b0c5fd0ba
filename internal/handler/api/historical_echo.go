package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"HistPull/internal/domain/models"
	domrepo "HistPull/internal/domain/repository"
	"HistPull/internal/service/ratelimit"
	"HistPull/internal/usecase"
	xhttp "HistPull/pkg/http"
	xlogger "HistPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// HistoricalDataProvider is the slice of the use case the handler needs.
type HistoricalDataProvider interface {
	GetHistoricalData(ctx context.Context, p usecase.GetHistoricalDataParams) (*models.AggregationResult, error)
}

// HistoricalEchoHandler serves the historical candle endpoints over Echo.
type HistoricalEchoHandler struct {
	logger      *xlogger.Logger
	provider    HistoricalDataProvider
	rl          *ratelimit.Limiter
	defaultTF   domrepo.Timeframe
	environment string
}

func NewHistoricalEchoHandler(logger *xlogger.Logger, provider HistoricalDataProvider, environment string) *HistoricalEchoHandler {
	return &HistoricalEchoHandler{
		logger:      logger,
		provider:    provider,
		rl:          ratelimit.New(10, 5),
		defaultTF:   domrepo.DefaultTimeframe(),
		environment: environment,
	}
}

// SetRateLimit overrides the per-client token bucket parameters.
func (h *HistoricalEchoHandler) SetRateLimit(capacity, refillPerSec float64) {
	h.rl = ratelimit.New(capacity, refillPerSec)
}

// SetDefaultTimeframe overrides the timeframe used when a request omits one.
func (h *HistoricalEchoHandler) SetDefaultTimeframe(tf string) {
	h.defaultTF = domrepo.NormalizeTimeframe(tf)
}

func (h *HistoricalEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/historical-data", h.HistoricalData)
	e.GET("/health", h.Health)
}

func (h *HistoricalEchoHandler) HistoricalData(c echo.Context) error {
	if !h.rl.Allow(c.RealIP()) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limit exceeded")
	}

	req := &models.HistoricalDataRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	start, ok := xhttp.ParseTime(req.StartTime)
	if !ok {
		return xhttp.BadRequestResponse(c, "start_time must be RFC3339 or unix seconds")
	}
	end, ok := xhttp.ParseTime(req.EndTime)
	if !ok {
		return xhttp.BadRequestResponse(c, "end_time must be RFC3339 or unix seconds")
	}
	tf := h.defaultTF
	if req.TF != "" {
		tf = domrepo.NormalizeTimeframe(req.TF)
	}
	start, end = xhttp.AlignFromTo(start, end, string(tf))

	res, err := h.provider.GetHistoricalData(c.Request().Context(), usecase.GetHistoricalDataParams{
		Start:     start,
		End:       end,
		Symbols:   req.Symbols,
		Timeframe: tf,
	})
	if err != nil {
		if errors.Is(err, domrepo.ErrInvalidRequest) {
			return xhttp.BadRequestResponse(c, err.Error())
		}
		h.logger.Error("historical data usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	return xhttp.SuccessResponse(c, toResponse(res, tf))
}

func (h *HistoricalEchoHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"service":     "histpull",
		"environment": h.environment,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

func toResponse(res *models.AggregationResult, tf domrepo.Timeframe) *models.HistoricalDataResponse {
	out := &models.HistoricalDataResponse{
		Symbols:   make(map[string][]models.CandlePoint, len(res.Candles)),
		Timeframe: string(tf),
		Warnings:  res.Warnings,
	}
	for sym, candles := range res.Candles {
		points := make([]models.CandlePoint, 0, len(candles))
		for _, c := range candles {
			points = append(points, models.CandlePoint{
				StartTime: c.StartTime,
				Open:      c.Open,
				High:      c.High,
				Low:       c.Low,
				Close:     c.Close,
				Volume:    c.Volume,
			})
		}
		out.Symbols[sym] = points
	}
	return out
}
