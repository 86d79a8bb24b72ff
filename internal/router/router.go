package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/loyalty-rewards/internal/handler"
	"github.com/iliyamo/loyalty-rewards/internal/middleware"
)

// Handlers bundles every handler the API exposes.
type Handlers struct {
	Auth      *handler.AuthHandler
	Users     *handler.UserHandler
	Customers *handler.CustomerHandler
	Rewards   *handler.RewardHandler
	Redeem    *handler.RedeemHandler
	Me        *handler.MeHandler
	Tickets   *handler.TicketHandler
	Activity  *handler.ActivityHandler
	Dashboard *handler.DashboardHandler
}

// RegisterRoutes registers the unauthenticated endpoints: health checks,
// the uploads directory and the session routes under /v1/users.
func RegisterRoutes(e *echo.Echo, db *sql.DB, uploadDir string, a *handler.AuthHandler) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	e.Static("/uploads", uploadDir)

	g := e.Group("/v1/users")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout takes the refresh token in the body, so no access token is needed.
	g.POST("/logout", a.Logout)
}

// RegisterAPI registers every endpoint that needs a valid access token.
// Per-route capability checks sit on top of the shared JWT group.
func RegisterAPI(e *echo.Echo, h Handlers, jwtSecret string, rewardCache echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	g.GET("/users/me", h.Auth.Me)
	g.POST("/users/me/avatar", h.Users.UploadAvatar)

	registerCustomer(g, h)
	registerStaff(g, h, rewardCache)
}
