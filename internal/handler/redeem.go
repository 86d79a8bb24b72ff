package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/loyalty-rewards/internal/loyalty"
	"github.com/iliyamo/loyalty-rewards/internal/queue"
	"github.com/iliyamo/loyalty-rewards/internal/repository"
	"github.com/iliyamo/loyalty-rewards/internal/service"
	"github.com/iliyamo/loyalty-rewards/internal/utils"
)

// RedeemHandler exposes the redemption workflow.
type RedeemHandler struct {
	Requests   *repository.RedeemRequestRepo
	Redemption *service.Redemption
	Activity   *service.ActivityRecorder
}

func NewRedeemHandler(r *repository.RedeemRequestRepo, s *service.Redemption, a *service.ActivityRecorder) *RedeemHandler {
	return &RedeemHandler{Requests: r, Redemption: s, Activity: a}
}

type createRedeemReq struct {
	RewardID uint64 `json:"reward_id" validate:"required,min=1"`
}

type decisionReq struct {
	Note *string `json:"note" validate:"omitempty,max=255"`
}

// Create handles POST /v1/redeem-requests.  The reward cost is debited
// immediately; ineligible requests get a 422 with the reason.
func (h *RedeemHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return utils.Failure(c, http.StatusUnauthorized, "unauthorized")
	}
	var req createRedeemReq
	if err := bind(c, &req); err != nil {
		return fail(c, err, "create redeem request")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	rr, err := h.Redemption.Create(ctx, uid, req.RewardID)
	if err != nil {
		return fail(c, err, "create redeem request")
	}
	h.Activity.Record(ctx, service.Event(uid, queue.ActionRedeemCreated, "redeem_request", rr.ID,
		fmt.Sprintf("reward=%d points=%d", rr.RewardID, rr.PointsUsed)))
	return utils.Success(c, http.StatusCreated, rr)
}

// Mine handles GET /v1/redeem-requests/mine.
func (h *RedeemHandler) Mine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return utils.Failure(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Requests.ListByUser(ctx, uid, pageFrom(c))
	if err != nil {
		return fail(c, err, "list redeem requests")
	}
	return utils.Success(c, http.StatusOK, list)
}

// List handles GET /v1/redeem-requests?status=.  Without status every
// request is listed.
func (h *RedeemHandler) List(c echo.Context) error {
	var status loyalty.RequestStatus
	if s := c.QueryParam("status"); s != "" {
		st, ok := loyalty.ParseStatus(s)
		if !ok {
			return utils.Failure(c, http.StatusBadRequest, "status must be one of: pending, approved, rejected, used")
		}
		status = st
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Requests.ListByStatus(ctx, status, pageFrom(c))
	if err != nil {
		return fail(c, err, "list redeem requests")
	}
	return utils.Success(c, http.StatusOK, list)
}

// Approve handles POST /v1/redeem-requests/:id/approve.
func (h *RedeemHandler) Approve(c echo.Context) error {
	return h.decide(c, loyalty.ActionApprove)
}

// Reject handles POST /v1/redeem-requests/:id/reject and refunds the points.
func (h *RedeemHandler) Reject(c echo.Context) error {
	return h.decide(c, loyalty.ActionReject)
}

func (h *RedeemHandler) decide(c echo.Context, action loyalty.Action) error {
	manager, err := getUserID(c)
	if err != nil {
		return utils.Failure(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return utils.Failure(c, http.StatusBadRequest, err.Error())
	}
	var req decisionReq
	if c.Request().ContentLength != 0 {
		if err := bind(c, &req); err != nil {
			return fail(c, err, string(action)+" redeem request")
		}
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	apply, event := h.Redemption.Approve, queue.ActionRedeemApproved
	if action == loyalty.ActionReject {
		apply, event = h.Redemption.Reject, queue.ActionRedeemRejected
	}
	rr, err := apply(ctx, id, manager, req.Note)
	if err != nil {
		return fail(c, err, string(action)+" redeem request")
	}
	h.Activity.Record(ctx, service.Event(manager, event, "redeem_request", id, ""))
	return utils.Success(c, http.StatusOK, rr)
}

// Use handles POST /v1/redeem-requests/:id/use by the owning customer.
func (h *RedeemHandler) Use(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return utils.Failure(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return utils.Failure(c, http.StatusBadRequest, err.Error())
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	rr, err := h.Redemption.Use(ctx, id, uid)
	if err != nil {
		return fail(c, err, "use voucher")
	}
	h.Activity.Record(ctx, service.Event(uid, queue.ActionRedeemUsed, "redeem_request", id, ""))
	return utils.Success(c, http.StatusOK, rr)
}
