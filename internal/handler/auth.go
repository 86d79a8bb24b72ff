package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/loyalty-rewards/internal/authz"
	"github.com/iliyamo/loyalty-rewards/internal/config"
	"github.com/iliyamo/loyalty-rewards/internal/model"
	"github.com/iliyamo/loyalty-rewards/internal/queue"
	"github.com/iliyamo/loyalty-rewards/internal/repository"
	"github.com/iliyamo/loyalty-rewards/internal/service"
	"github.com/iliyamo/loyalty-rewards/internal/utils"
)

// AuthHandler bundles dependencies for registration, login and sessions.
type AuthHandler struct {
	Cfg      config.Config
	DB       *sql.DB
	Users    *repository.UserRepo
	Tokens   *repository.TokenRepo
	Ledger   *service.Ledger
	Activity *service.ActivityRecorder
}

func NewAuthHandler(cfg config.Config, db *sql.DB, u *repository.UserRepo, t *repository.TokenRepo, l *service.Ledger, a *service.ActivityRecorder) *AuthHandler {
	return &AuthHandler{Cfg: cfg, DB: db, Users: u, Tokens: t, Ledger: l, Activity: a}
}

// registerReq is the body of POST /v1/users/register.  Self-registration
// always creates a customer; staff accounts come from the admin API.
type registerReq struct {
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	Name     string  `json:"name" validate:"required,max=120"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// refreshReq carries the raw refresh token for refresh and logout.
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// authResp is returned by register, login and refresh.
type authResp struct {
	User    model.User `json:"user"`
	Access  tokenPart  `json:"access"`
	Refresh tokenPart  `json:"refresh"`
}

// Register creates a customer account, grants the sign-up bonus and
// returns a token pair.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return fail(c, err, "register")
	}
	// Bound all database work of this request.
	ctx, cancel := dbCtx(c)
	defer cancel()

	// The user row and the sign-up bonus are written in one transaction,
	// so a failed bonus leaves no half-created account.
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return fail(c, err, "register")
	}
	// Roll back on every early return; Commit flips the flag.
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	// CreateTx lowercases the email and hashes the password.  A taken
	// email surfaces as ErrEmailExists (409).
	uid, err := h.Users.CreateTx(ctx, tx, repository.NewUser{
		Email: req.Email, Password: req.Password, Name: req.Name, Phone: req.Phone, Role: authz.RoleCustomer,
	}, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, err, "register")
	}
	// No-op when SIGNUP_BONUS_POINTS is 0.
	if err := h.Ledger.GrantSignupBonusTx(ctx, tx, uid, h.Cfg.SignupBonusPoints); err != nil {
		return fail(c, err, "register")
	}
	if err := tx.Commit(); err != nil {
		return fail(c, err, "register")
	}
	committed = true

	// Reload so the response carries the stored balance and timestamps.
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return fail(c, err, "register")
	}
	h.Activity.Record(ctx, service.Event(uid, queue.ActionUserRegistered, "user", uid, u.Email))
	return h.issue(c, http.StatusCreated, u)
}

// Login verifies credentials.  Deactivated accounts are refused.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return fail(c, err, "login")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	// Unknown email and wrong password give the same answer.
	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Failure(c, http.StatusUnauthorized, "invalid credentials")
		}
		return fail(c, err, "login")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return utils.Failure(c, http.StatusUnauthorized, "invalid credentials")
	}
	if !u.IsActive {
		logrus.WithField("user_id", u.ID).Warn("login attempt on deactivated account")
		return utils.Failure(c, http.StatusForbidden, "account is deactivated")
	}
	return h.issue(c, http.StatusOK, u)
}

// Refresh consumes a refresh token and issues a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return utils.Failure(c, http.StatusBadRequest, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := dbCtx(c)
	defer cancel()

	// Consume revokes the old token; a second use of the same token fails
	// here with 401.
	userID, err := h.Tokens.Consume(ctx, hash, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Failure(c, http.StatusUnauthorized, "invalid refresh token")
		}
		return fail(c, err, "refresh")
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return fail(c, err, "refresh")
	}
	if !u.IsActive {
		return utils.Failure(c, http.StatusForbidden, "account is deactivated")
	}
	return h.issue(c, http.StatusOK, u)
}

// Logout revokes one refresh token when one is given in the body, or all
// of the caller's refresh tokens when only a bearer token is present.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	refresh := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := dbCtx(c)
	defer cancel()

	if refresh != "" {
		hash := utils.HashRefreshRaw(refresh)
		if _, err := h.Tokens.Consume(ctx, hash, time.Now().UTC()); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return utils.Failure(c, http.StatusUnauthorized, "invalid refresh token")
			}
			return fail(c, err, "logout")
		}
		return c.NoContent(http.StatusNoContent)
	}

	// Without a refresh token, a valid access token logs the user out of
	// every device.
	auth := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			return utils.Failure(c, http.StatusUnauthorized, "invalid token")
		}
		if err := h.Tokens.RevokeAllForUser(ctx, claims.UserID, time.Now().UTC()); err != nil {
			return fail(c, err, "logout")
		}
		return c.NoContent(http.StatusNoContent)
	}
	return utils.Failure(c, http.StatusBadRequest, "provide Authorization header or refresh_token")
}

// Me returns the caller's profile and capabilities.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return utils.Failure(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return fail(c, err, "load profile")
	}
	return utils.Success(c, http.StatusOK, echo.Map{
		"user":         u,
		"capabilities": authz.Capabilities(u.Role),
	})
}

// issue signs an access token, stores the hash of a fresh refresh token
// and writes both with the user.
func (h *AuthHandler) issue(c echo.Context, status int, u model.User) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, string(u.Role), h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, err, "issue access token")
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return fail(c, err, "issue refresh token")
	}
	if err := h.Tokens.Store(c.Request().Context(), u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return fail(c, err, "save refresh token")
	}
	return utils.Success(c, status, authResp{
		User:    u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}
