package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/loyalty-rewards/internal/authz"
	"github.com/iliyamo/loyalty-rewards/internal/model"
	"github.com/iliyamo/loyalty-rewards/internal/queue"
	"github.com/iliyamo/loyalty-rewards/internal/repository"
	"github.com/iliyamo/loyalty-rewards/internal/service"
	"github.com/iliyamo/loyalty-rewards/internal/utils"
)

// CustomerHandler lets staff look up customers and credit points.
type CustomerHandler struct {
	Users    *repository.UserRepo
	Txns     *repository.TransactionRepo
	Ledger   *service.Ledger
	Activity *service.ActivityRecorder
}

func NewCustomerHandler(u *repository.UserRepo, t *repository.TransactionRepo, l *service.Ledger, a *service.ActivityRecorder) *CustomerHandler {
	return &CustomerHandler{Users: u, Txns: t, Ledger: l, Activity: a}
}

type purchaseReq struct {
	Amount      string `json:"amount" validate:"required"`
	Description string `json:"description" validate:"max=255"`
}

type grantReq struct {
	Points      int64  `json:"points" validate:"required,min=1,max=1000000"`
	Description string `json:"description" validate:"required,max=255"`
}

// Search handles GET /v1/customers?q= matching name, email or phone.
func (h *CustomerHandler) Search(c echo.Context) error {
	f := repository.UserFilter{Role: authz.RoleCustomer, Query: c.QueryParam("q"), Page: pageFrom(c)}
	ctx, cancel := dbCtx(c)
	defer cancel()
	users, total, err := h.Users.List(ctx, f)
	if err != nil {
		return fail(c, err, "search customers")
	}
	return utils.Success(c, http.StatusOK, echo.Map{"items": users, "total": total})
}

// Get handles GET /v1/customers/:id with the latest ten transactions.
func (h *CustomerHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return utils.Failure(c, http.StatusBadRequest, err.Error())
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, err := h.customer(c, id)
	if err != nil {
		return fail(c, err, "load customer")
	}
	recent, _, err := h.Txns.ListByUser(ctx, id, repository.Page{Limit: 10})
	if err != nil {
		return fail(c, err, "load customer")
	}
	b := u.Balance()
	return utils.Success(c, http.StatusOK, echo.Map{
		"customer":            u,
		"points_to_next_tier": b.PointsToNextTier(),
		"recent_transactions": recent,
	})
}

// RecordPurchase handles POST /v1/customers/:id/purchases.  The amount is
// a decimal string; one point is earned per currency unit.
func (h *CustomerHandler) RecordPurchase(c echo.Context) error {
	staff, err := getUserID(c)
	if err != nil {
		return utils.Failure(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return utils.Failure(c, http.StatusBadRequest, err.Error())
	}
	var req purchaseReq
	if err := bind(c, &req); err != nil {
		return fail(c, err, "record purchase")
	}
	total, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return utils.Failure(c, http.StatusBadRequest, "amount must be a number")
	}
	if _, err := h.customer(c, id); err != nil {
		return fail(c, err, "record purchase")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	res, err := h.Ledger.RecordPurchase(ctx, id, total, req.Description, &staff)
	if err != nil {
		return fail(c, err, "record purchase")
	}
	h.Activity.Record(ctx, service.Event(staff, queue.ActionPurchase, "user", id,
		fmt.Sprintf("amount=%s points=%d", total.StringFixed(2), res.PointsEarned)))
	return utils.Success(c, http.StatusCreated, res)
}

// GrantPoints handles POST /v1/customers/:id/points.
func (h *CustomerHandler) GrantPoints(c echo.Context) error {
	staff, err := getUserID(c)
	if err != nil {
		return utils.Failure(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return utils.Failure(c, http.StatusBadRequest, err.Error())
	}
	var req grantReq
	if err := bind(c, &req); err != nil {
		return fail(c, err, "grant points")
	}
	if _, err := h.customer(c, id); err != nil {
		return fail(c, err, "grant points")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	b, err := h.Ledger.AddPoints(ctx, id, req.Points, req.Description, &staff)
	if err != nil {
		return fail(c, err, "grant points")
	}
	h.Activity.Record(ctx, service.Event(staff, queue.ActionPointsGranted, "user", id, fmt.Sprintf("points=%d", req.Points)))
	return utils.Success(c, http.StatusCreated, b)
}

// customer loads a user and hides non-customers behind ErrNotFound.
func (h *CustomerHandler) customer(c echo.Context, id uint64) (model.User, error) {
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return u, err
	}
	if u.Role != authz.RoleCustomer {
		return u, repository.ErrNotFound
	}
	return u, nil
}
