package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/loyalty-rewards/internal/authz"
	"github.com/iliyamo/loyalty-rewards/internal/middleware"
)

// registerCustomer wires the routes a customer uses to follow their own
// account: balance, history, redemptions and support tickets.
func registerCustomer(g *echo.Group, h Handlers) {
	redeem := middleware.RequireCapability(authz.CapRedeem)

	g.GET("/me/summary", h.Me.Summary, redeem)
	g.GET("/me/transactions", h.Me.Transactions, redeem)

	g.POST("/redeem-requests", h.Redeem.Create, redeem)
	g.GET("/redeem-requests/mine", h.Redeem.Mine, redeem)
	g.POST("/redeem-requests/:id/use", h.Redeem.Use, redeem)

	// Tickets are open to every role; Get and Reply check ownership.
	open := middleware.RequireCapability(authz.CapOpenTickets)
	g.POST("/support-tickets", h.Tickets.Create, open)
	g.GET("/support-tickets/mine", h.Tickets.Mine, open)
	g.GET("/support-tickets/:id", h.Tickets.Get, open)
	g.POST("/support-tickets/:id/replies", h.Tickets.Reply, open)
}
