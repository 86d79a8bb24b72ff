package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/loyalty-rewards/internal/repository"
	"github.com/iliyamo/loyalty-rewards/internal/utils"
)

type ActivityHandler struct {
	Logs *repository.ActivityLogRepo
}

func NewActivityHandler(l *repository.ActivityLogRepo) *ActivityHandler {
	return &ActivityHandler{Logs: l}
}

// List handles GET /v1/activity-logs?actor_id=&action=.
func (h *ActivityHandler) List(c echo.Context) error {
	f := repository.ActivityFilter{Action: c.QueryParam("action"), Page: pageFrom(c)}
	if s := c.QueryParam("actor_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return utils.Failure(c, http.StatusBadRequest, "invalid actor_id")
		}
		f.ActorID = id
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Logs.List(ctx, f)
	if err != nil {
		return fail(c, err, "list activity")
	}
	return utils.Success(c, http.StatusOK, list)
}
