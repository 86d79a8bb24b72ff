package handler // declare the package name; contains HTTP handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/loyalty-rewards/internal/utils"
)

// Health reports that the process is up.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Ready pings the database so load balancers stop routing to an instance
// that lost MySQL.
func Ready(db *sql.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return utils.Failure(c, http.StatusServiceUnavailable, "database unavailable")
		}
		return utils.Success(c, http.StatusOK, echo.Map{"status": "ready"})
	}
}
