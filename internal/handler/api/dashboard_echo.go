package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"MarketRegime/internal/domain/models"
	domrepo "MarketRegime/internal/domain/repository"
	"MarketRegime/internal/usecase"
	xhttp "MarketRegime/pkg/http"
	xlogger "MarketRegime/pkg/logger"
)

// DashboardReader is the read model behind the dashboard routes.
type DashboardReader interface {
	Overview(ctx context.Context) ([]models.OverviewRow, error)
	StockReport(ctx context.Context, symbol string) (*models.StockReport, error)
	SignalHistory(ctx context.Context, symbol string, limit int) ([]models.SignalRow, error)
	News(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error)
}

// RunLauncher starts a pipeline run in the background.
type RunLauncher interface {
	Launch(req models.RunRequest) (string, error)
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

type DashboardEchoHandler struct {
	logger    *xlogger.Logger
	dashboard DashboardReader
	runner    RunLauncher
	runLimit  echo.MiddlewareFunc
	checks    map[string]HealthCheck
}

func NewDashboardEchoHandler(
	logger *xlogger.Logger,
	dashboard DashboardReader,
	runner RunLauncher,
	runLimit echo.MiddlewareFunc,
	checks map[string]HealthCheck,
) *DashboardEchoHandler {
	return &DashboardEchoHandler{
		logger:    logger,
		dashboard: dashboard,
		runner:    runner,
		runLimit:  runLimit,
		checks:    checks,
	}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/overview", h.Overview)
	g.GET("/stocks/:symbol", h.Stock)
	g.GET("/stocks/:symbol/signals", h.Signals)
	g.GET("/stocks/:symbol/news", h.News)

	var mw []echo.MiddlewareFunc
	if h.runLimit != nil {
		mw = append(mw, h.runLimit)
	}
	g.POST("/pipeline/run", h.Run, mw...)
}

func (h *DashboardEchoHandler) Overview(c echo.Context) error {
	rows, err := h.dashboard.Overview(c.Request().Context())
	if err != nil {
		return h.fail(c, "overview", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *DashboardEchoHandler) Stock(c echo.Context) error {
	req := &models.StockRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rep, err := h.dashboard.StockReport(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "stock report", err)
	}
	return xhttp.SuccessResponse(c, rep)
}

func (h *DashboardEchoHandler) Signals(c echo.Context) error {
	req := &models.SignalHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.dashboard.SignalHistory(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		return h.fail(c, "signal history", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *DashboardEchoHandler) News(c echo.Context) error {
	req := &models.NewsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	items, err := h.dashboard.News(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		return h.fail(c, "news", err)
	}
	return xhttp.ListResponse(c, items, int64(len(items)))
}

// Run starts a pipeline run and answers 202 with its id, or 409 when a run
// is already going.
func (h *DashboardEchoHandler) Run(c echo.Context) error {
	req := &models.RunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	runID, err := h.runner.Launch(*req)
	if err != nil {
		if errors.Is(err, usecase.ErrRunInProgress) {
			return xhttp.AppErrorResponse(c, xhttp.ConflictError("a pipeline run is already in progress"))
		}
		return h.fail(c, "launch run", err)
	}

	h.logger.Info("pipeline run launched",
		xlogger.String("run_id", runID),
		xlogger.Int("symbols", len(req.Symbols)),
		xlogger.String("remote", c.RealIP()),
	)
	return xhttp.AcceptedResponse(c, map[string]string{"run_id": runID})
}

type healthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *DashboardEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	report := healthReport{Status: "ok", Checks: map[string]string{}}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			report.Status = "degraded"
			report.Checks[name] = err.Error()
			continue
		}
		report.Checks[name] = "ok"
	}

	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	return xhttp.DataResponse(c, status, report)
}

// fail maps a use case error to the envelope: missing data is 404, anything
// else is logged and returned as 500.
func (h *DashboardEchoHandler) fail(c echo.Context, op string, err error) error {
	if domrepo.IsMissing(err) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no data for %s", c.Param("symbol")).WithError(err))
	}
	h.logger.Error(op+" failed", xlogger.String("path", c.Path()), xlogger.Error(err))
	return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("%s failed", op).WithError(err))
}
