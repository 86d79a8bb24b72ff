package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/loyalty-rewards/internal/authz"
	"github.com/iliyamo/loyalty-rewards/internal/model"
	"github.com/iliyamo/loyalty-rewards/internal/queue"
	"github.com/iliyamo/loyalty-rewards/internal/repository"
	"github.com/iliyamo/loyalty-rewards/internal/service"
	"github.com/iliyamo/loyalty-rewards/internal/utils"
)

// TicketHandler serves support tickets.  Any user opens and follows their
// own tickets; ticket managers see and update all of them.
type TicketHandler struct {
	Tickets  *repository.SupportTicketRepo
	Refs     *service.ReferenceGenerator
	Activity *service.ActivityRecorder
}

func NewTicketHandler(t *repository.SupportTicketRepo, refs *service.ReferenceGenerator, a *service.ActivityRecorder) *TicketHandler {
	return &TicketHandler{Tickets: t, Refs: refs, Activity: a}
}

type createTicketReq struct {
	Subject  string `json:"subject" validate:"required,max=200"`
	Message  string `json:"message" validate:"required,max=5000"`
	Priority string `json:"priority" validate:"omitempty,oneof=low normal high"`
}

type patchTicketReq struct {
	Status     *string `json:"status" validate:"omitempty,oneof=open in_progress resolved closed"`
	Priority   *string `json:"priority" validate:"omitempty,oneof=low normal high"`
	AssignedTo *uint64 `json:"assigned_to" validate:"omitempty,min=1"`
}

type replyReq struct {
	Message string `json:"message" validate:"required,max=5000"`
}

// Create handles POST /v1/support-tickets.
func (h *TicketHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return utils.Failure(c, http.StatusUnauthorized, "unauthorized")
	}
	var req createTicketReq
	if err := bind(c, &req); err != nil {
		return fail(c, err, "open ticket")
	}
	t := model.SupportTicket{
		Reference: h.Refs.Next(),
		UserID:    uid,
		Subject:   strings.TrimSpace(req.Subject),
		Message:   req.Message,
		Priority:  req.Priority,
	}
	if t.Priority == "" {
		t.Priority = model.PriorityNormal
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	id, err := h.Tickets.Create(ctx, &t)
	if err != nil {
		return fail(c, err, "open ticket")
	}
	created, err := h.Tickets.GetByID(ctx, id)
	if err != nil {
		return fail(c, err, "open ticket")
	}
	h.Activity.Record(ctx, service.Event(uid, queue.ActionTicketCreated, "support_ticket", id, t.Reference))
	return utils.Success(c, http.StatusCreated, created)
}

// Mine handles GET /v1/support-tickets/mine.
func (h *TicketHandler) Mine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return utils.Failure(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Tickets.List(ctx, repository.TicketFilter{UserID: uid, Status: c.QueryParam("status"), Page: pageFrom(c)})
	if err != nil {
		return fail(c, err, "list tickets")
	}
	return utils.Success(c, http.StatusOK, list)
}

// List handles GET /v1/support-tickets?status= for ticket managers.
func (h *TicketHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Tickets.List(ctx, repository.TicketFilter{Status: c.QueryParam("status"), Page: pageFrom(c)})
	if err != nil {
		return fail(c, err, "list tickets")
	}
	return utils.Success(c, http.StatusOK, list)
}

// Get handles GET /v1/support-tickets/:id with its replies.
func (h *TicketHandler) Get(c echo.Context) error {
	t, err := h.visible(c)
	if err != nil {
		return fail(c, err, "load ticket")
	}
	return utils.Success(c, http.StatusOK, t)
}

// Patch handles PATCH /v1/support-tickets/:id.
func (h *TicketHandler) Patch(c echo.Context) error {
	actor, _ := getUserID(c)
	id, err := parseID(c, "id")
	if err != nil {
		return utils.Failure(c, http.StatusBadRequest, err.Error())
	}
	var req patchTicketReq
	if err := bind(c, &req); err != nil {
		return fail(c, err, "update ticket")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	err = h.Tickets.Update(ctx, id, repository.TicketPatch{Status: req.Status, Priority: req.Priority, AssignedTo: req.AssignedTo})
	if err != nil {
		return fail(c, err, "update ticket")
	}
	t, err := h.Tickets.GetByID(ctx, id)
	if err != nil {
		return fail(c, err, "update ticket")
	}
	h.Activity.Record(ctx, service.Event(actor, queue.ActionTicketUpdated, "support_ticket", id, t.Status))
	return utils.Success(c, http.StatusOK, t)
}

// Reply handles POST /v1/support-tickets/:id/replies.  Replies to closed
// tickets are refused.
func (h *TicketHandler) Reply(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return utils.Failure(c, http.StatusUnauthorized, "unauthorized")
	}
	var req replyReq
	if err := bind(c, &req); err != nil {
		return fail(c, err, "reply")
	}
	t, err := h.visible(c)
	if err != nil {
		return fail(c, err, "reply")
	}
	if t.Status == model.TicketClosed {
		return utils.Failure(c, http.StatusConflict, "ticket is closed")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if _, err := h.Tickets.AddReply(ctx, t.ID, uid, req.Message); err != nil {
		return fail(c, err, "reply")
	}
	t, err = h.Tickets.GetByID(ctx, t.ID)
	if err != nil {
		return fail(c, err, "reply")
	}
	h.Activity.Record(ctx, service.Event(uid, queue.ActionTicketReplied, "support_ticket", t.ID, ""))
	return utils.Success(c, http.StatusCreated, t)
}

// visible loads the :id ticket if the caller owns it or manages tickets.
// Other callers get ErrNotFound.
func (h *TicketHandler) visible(c echo.Context) (model.SupportTicket, error) {
	uid, err := getUserID(c)
	if err != nil {
		return model.SupportTicket{}, repository.ErrForbidden
	}
	id, err := parseID(c, "id")
	if err != nil {
		return model.SupportTicket{}, invalid(err.Error())
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	t, err := h.Tickets.GetByID(ctx, id)
	if err != nil {
		return t, err
	}
	if t.UserID != uid && !can(c, authz.CapManageTickets) {
		return model.SupportTicket{}, repository.ErrNotFound
	}
	return t, nil
}
