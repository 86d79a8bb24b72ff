package handler

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/loyalty-rewards/internal/authz"
	"github.com/iliyamo/loyalty-rewards/internal/config"
	"github.com/iliyamo/loyalty-rewards/internal/queue"
	"github.com/iliyamo/loyalty-rewards/internal/repository"
	"github.com/iliyamo/loyalty-rewards/internal/service"
	"github.com/iliyamo/loyalty-rewards/internal/utils"
)

// UserHandler serves user administration and profile images.
type UserHandler struct {
	Cfg      config.Config
	DB       *sql.DB
	Users    *repository.UserRepo
	Tokens   *repository.TokenRepo
	Uploads  Uploads
	Activity *service.ActivityRecorder
}

func NewUserHandler(cfg config.Config, db *sql.DB, u *repository.UserRepo, t *repository.TokenRepo, up Uploads, a *service.ActivityRecorder) *UserHandler {
	return &UserHandler{Cfg: cfg, DB: db, Users: u, Tokens: t, Uploads: up, Activity: a}
}

type createUserReq struct {
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	Name     string  `json:"name" validate:"required,max=120"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
	Role     string  `json:"role" validate:"required,oneof=customer cashier waiter manager admin owner"`
}

type patchUserReq struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=120"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
	Role     *string `json:"role" validate:"omitempty,oneof=customer cashier waiter manager admin owner"`
	IsActive *bool   `json:"is_active"`
}

// List handles GET /v1/users?role=&q=&limit=&offset=.
func (h *UserHandler) List(c echo.Context) error {
	f := repository.UserFilter{Query: c.QueryParam("q"), Page: pageFrom(c)}
	if r := c.QueryParam("role"); r != "" {
		role, ok := authz.ParseRole(r)
		if !ok {
			return utils.Failure(c, http.StatusBadRequest, "unknown role")
		}
		f.Role = role
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	users, total, err := h.Users.List(ctx, f)
	if err != nil {
		return fail(c, err, "list users")
	}
	return utils.Success(c, http.StatusOK, echo.Map{"items": users, "total": total, "limit": f.Page.Limit, "offset": f.Page.Offset})
}

// Create handles POST /v1/users.  Only an owner may create another owner.
func (h *UserHandler) Create(c echo.Context) error {
	actor, err := getUserID(c)
	if err != nil {
		return utils.Failure(c, http.StatusUnauthorized, "unauthorized")
	}
	var req createUserReq
	if err := bind(c, &req); err != nil {
		return fail(c, err, "create user")
	}
	role, _ := authz.ParseRole(req.Role)
	if caller, _ := callerRole(c); role == authz.RoleOwner && caller != authz.RoleOwner {
		return utils.Failure(c, http.StatusForbidden, "only an owner can create owners")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return fail(c, err, "create user")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	id, err := h.Users.CreateTx(ctx, tx, repository.NewUser{
		Email: req.Email, Password: req.Password, Name: req.Name, Phone: req.Phone, Role: role,
	}, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, err, "create user")
	}
	if err := tx.Commit(); err != nil {
		return fail(c, err, "create user")
	}
	committed = true

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return fail(c, err, "create user")
	}
	h.Activity.Record(ctx, service.Event(actor, queue.ActionUserCreated, "user", id, string(role)))
	return utils.Success(c, http.StatusCreated, u)
}

// Get handles GET /v1/users/:id.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return utils.Failure(c, http.StatusBadRequest, err.Error())
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return fail(c, err, "load user")
	}
	return utils.Success(c, http.StatusOK, u)
}

// Patch handles PATCH /v1/users/:id.  Deactivation revokes every refresh
// token of the user; nobody can deactivate or demote themselves.
func (h *UserHandler) Patch(c echo.Context) error {
	actor, err := getUserID(c)
	if err != nil {
		return utils.Failure(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return utils.Failure(c, http.StatusBadRequest, err.Error())
	}
	var req patchUserReq
	if err := bind(c, &req); err != nil {
		return fail(c, err, "update user")
	}
	patch := repository.UserPatch{Name: req.Name, Phone: req.Phone, IsActive: req.IsActive}
	if req.Role != nil {
		role, _ := authz.ParseRole(*req.Role)
		caller, _ := callerRole(c)
		if role == authz.RoleOwner && caller != authz.RoleOwner {
			return utils.Failure(c, http.StatusForbidden, "only an owner can grant the owner role")
		}
		patch.Role = &role
	}
	if id == actor && (patch.Role != nil || (req.IsActive != nil && !*req.IsActive)) {
		return utils.Failure(c, http.StatusBadRequest, "you cannot change your own role or deactivate yourself")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Users.Update(ctx, id, patch); err != nil {
		return fail(c, err, "update user")
	}
	if req.IsActive != nil && !*req.IsActive {
		if err := h.Tokens.RevokeAllForUser(ctx, id, time.Now().UTC()); err != nil {
			return fail(c, err, "revoke sessions")
		}
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return fail(c, err, "update user")
	}
	h.Activity.Record(ctx, service.Event(actor, queue.ActionUserUpdated, "user", id, ""))
	return utils.Success(c, http.StatusOK, u)
}

// UploadAvatar handles POST /v1/users/me/avatar (multipart field "avatar").
func (h *UserHandler) UploadAvatar(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return utils.Failure(c, http.StatusUnauthorized, "unauthorized")
	}
	path, err := h.Uploads.saveImage(c, "avatar")
	if err != nil {
		return fail(c, err, "upload avatar")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Users.SetAvatar(ctx, uid, path); err != nil {
		return fail(c, err, "upload avatar")
	}
	return utils.Success(c, http.StatusOK, echo.Map{"avatar_path": path})
}
