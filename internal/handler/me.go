package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/loyalty-rewards/internal/repository"
	"github.com/iliyamo/loyalty-rewards/internal/utils"
)

// MeHandler serves the customer's own points views.
type MeHandler struct {
	Users *repository.UserRepo
	Txns  *repository.TransactionRepo
}

func NewMeHandler(u *repository.UserRepo, t *repository.TransactionRepo) *MeHandler {
	return &MeHandler{Users: u, Txns: t}
}

// Summary handles GET /v1/me/summary: balance, tier progress and the five
// latest transactions.
func (h *MeHandler) Summary(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return utils.Failure(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return fail(c, err, "load summary")
	}
	recent, _, err := h.Txns.ListByUser(ctx, uid, repository.Page{Limit: 5})
	if err != nil {
		return fail(c, err, "load summary")
	}
	b := u.Balance()
	resp := echo.Map{
		"balance":             b,
		"points_to_next_tier": b.PointsToNextTier(),
		"recent_transactions": recent,
	}
	if next, _, ok := b.Tier.Next(); ok {
		resp["next_tier"] = next
	}
	return utils.Success(c, http.StatusOK, resp)
}

// Transactions handles GET /v1/me/transactions.
func (h *MeHandler) Transactions(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return utils.Failure(c, http.StatusUnauthorized, "unauthorized")
	}
	p := pageFrom(c)
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, total, err := h.Txns.ListByUser(ctx, uid, p)
	if err != nil {
		return fail(c, err, "list transactions")
	}
	return utils.Success(c, http.StatusOK, echo.Map{"items": list, "total": total, "limit": p.Limit, "offset": p.Offset})
}
