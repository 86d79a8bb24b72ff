package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/loyalty-rewards/internal/repository"
	"github.com/iliyamo/loyalty-rewards/internal/utils"
)

type DashboardHandler struct {
	Dash *repository.DashboardRepo
	Now  func() time.Time
}

func NewDashboardHandler(d *repository.DashboardRepo) *DashboardHandler {
	return &DashboardHandler{Dash: d, Now: time.Now}
}

func intQuery(c echo.Context, name string, def, max int) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// OwnerMetrics handles GET /v1/users/owner/metrics?days=&top=.
func (h *DashboardHandler) OwnerMetrics(c echo.Context) error {
	days := intQuery(c, "days", 30, 365)
	top := intQuery(c, "top", 10, 50)
	ctx, cancel := dbCtx(c)
	defer cancel()
	m, err := h.Dash.OwnerMetrics(ctx, h.Now(), days, top)
	if err != nil {
		return fail(c, err, "load metrics")
	}
	return utils.Success(c, http.StatusOK, m)
}

// Manager handles GET /v1/dashboard/manager.
func (h *DashboardHandler) Manager(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	s, err := h.Dash.ManagerSummary(ctx, h.Now())
	if err != nil {
		return fail(c, err, "load dashboard")
	}
	return utils.Success(c, http.StatusOK, s)
}
