package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/loyalty-rewards/internal/authz"
	"github.com/iliyamo/loyalty-rewards/internal/middleware"
)

// registerStaff wires the staff-facing endpoints.  The reward catalog is
// readable by everyone signed in and is served through rewardCache.
func registerStaff(g *echo.Group, h Handlers, rewardCache echo.MiddlewareFunc) {
	// ---- Users ----
	users := middleware.RequireCapability(authz.CapManageUsers)
	g.GET("/users", h.Users.List, users)
	g.POST("/users", h.Users.Create, users)
	g.GET("/users/:id", h.Users.Get, users)
	g.PATCH("/users/:id", h.Users.Patch, users)

	// ---- Dashboards ----
	metrics := middleware.RequireCapability(authz.CapViewMetrics)
	g.GET("/users/owner/metrics", h.Dashboard.OwnerMetrics, metrics)
	g.GET("/dashboard/manager", h.Dashboard.Manager, metrics)

	// ---- Rewards ----
	g.GET("/rewards", h.Rewards.List, rewardCache)
	g.GET("/rewards/:id", h.Rewards.Get, rewardCache)
	manage := middleware.RequireCapability(authz.CapManageRewards)
	g.POST("/rewards", h.Rewards.Create, manage)
	g.PUT("/rewards/:id", h.Rewards.Update, manage)
	g.DELETE("/rewards/:id", h.Rewards.Delete, manage)
	g.POST("/rewards/:id/image", h.Rewards.UploadImage, manage)

	// ---- Customers ----
	g.GET("/customers", h.Customers.Search, middleware.RequireCapability(authz.CapLookupCustomers))
	g.GET("/customers/:id", h.Customers.Get, middleware.RequireCapability(authz.CapLookupCustomers))
	g.POST("/customers/:id/purchases", h.Customers.RecordPurchase, middleware.RequireCapability(authz.CapRecordPurchase))
	g.POST("/customers/:id/points", h.Customers.GrantPoints, middleware.RequireCapability(authz.CapGrantPoints))

	// ---- Redemptions ----
	process := middleware.RequireCapability(authz.CapProcessRedemptions)
	g.GET("/redeem-requests", h.Redeem.List, process)
	g.POST("/redeem-requests/:id/approve", h.Redeem.Approve, process)
	g.POST("/redeem-requests/:id/reject", h.Redeem.Reject, process)

	// ---- Tickets and activity ----
	tickets := middleware.RequireCapability(authz.CapManageTickets)
	g.GET("/support-tickets", h.Tickets.List, tickets)
	g.PATCH("/support-tickets/:id", h.Tickets.Patch, tickets)
	g.GET("/activity-logs", h.Activity.List, middleware.RequireCapability(authz.CapViewActivity))
}
