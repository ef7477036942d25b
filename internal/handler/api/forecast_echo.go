package api

import (
	"errors"
	"net/http"
	"time"

	models "SalesCast/internal/domain/models"
	"SalesCast/internal/service/ratelimit"
	"SalesCast/internal/services/calendar"
	"SalesCast/internal/usecase"
	xhttp "SalesCast/pkg/http"
	xlogger "SalesCast/pkg/logger"
	"SalesCast/pkg/util"

	"github.com/labstack/echo/v4"
)

// ForecastEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type ForecastEchoHandler struct {
	logger  *xlogger.Logger
	orch    *usecase.ForecastOrchestrator
	oracle  *calendar.Oracle
	limiter *ratelimit.Limiter
}

func NewForecastEchoHandler(logger *xlogger.Logger, orch *usecase.ForecastOrchestrator, oracle *calendar.Oracle) *ForecastEchoHandler {
	if oracle == nil {
		oracle = calendar.New()
	}
	return &ForecastEchoHandler{logger: logger, orch: orch, oracle: oracle, limiter: ratelimit.New()}
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/forecast", h.Forecast)
	g.POST("/forecast/run", h.RunAll)
	g.GET("/history", h.History)
	g.GET("/policy", h.Policy)
	g.GET("/calendar", h.Calendar)
}

func (h *ForecastEchoHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	// Refresh bypasses the cache, so it pays the full recursive run; keep it
	// to one per platform every few seconds.
	if req.Refresh && !h.limiter.Allow("refresh:"+req.Platform, 1, 0.2) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "refresh rate limited")
	}

	res, err := h.orch.Run(c.Request().Context(), req.Platform, req.Model, req.Horizon, req.Refresh)
	if err != nil {
		h.logger.Error("forecast usecase error", xlogger.Error(err))
		if errors.Is(err, models.ErrData) || errors.Is(err, models.ErrConfiguration) {
			return xhttp.BadRequestResponse(c, err.Error())
		}
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastEchoHandler) RunAll(c echo.Context) error {
	req := &models.ForecastRequest{Platform: "all"}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.limiter.Allow("run_all", 1, 0.05) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "batch run rate limited")
	}

	results, err := h.orch.RunAll(c.Request().Context(), req.Horizon)
	if err != nil {
		h.logger.Error("batch forecast error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, results, int64(len(results)))
}

func (h *ForecastEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.orch.History(c.Request().Context(), req.Platform, req.Days)
	if err != nil {
		h.logger.Error("history usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *ForecastEchoHandler) Policy(c echo.Context) error {
	req := &models.PolicyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	pol, err := h.orch.Policy(c.Request().Context(), req.Platform)
	if err != nil {
		h.logger.Error("policy usecase error", xlogger.Error(err))
		if errors.Is(err, models.ErrData) {
			return xhttp.BadRequestResponse(c, err.Error())
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, pol)
}

func (h *ForecastEchoHandler) Calendar(c echo.Context) error {
	req := &models.CalendarRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, err := time.ParseInLocation("2006-01-02", req.From, time.UTC)
	if err != nil {
		t, ok := xhttp.ParseTime(req.From)
		if !ok {
			return xhttp.BadRequestResponse(c, "from must be YYYY-MM-DD or RFC3339")
		}
		from = util.TruncateDay(t)
	}

	flags := make([]calendar.DayFlags, 0, req.Days)
	for i := 0; i < req.Days; i++ {
		flags = append(flags, h.oracle.Flags(from.AddDate(0, 0, i)))
	}
	return xhttp.ListResponse(c, flags, int64(len(flags)))
}
