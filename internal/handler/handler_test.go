package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/loyalty-rewards/internal/loyalty"
	"github.com/iliyamo/loyalty-rewards/internal/repository"
	"github.com/iliyamo/loyalty-rewards/internal/service"
)

var (
	rewardCols = []string{"id", "name", "description", "points_cost", "expiry_days", "is_active",
		"minimum_required_tier", "image_path", "created_at", "updated_at"}
	redeemCols = []string{"id", "user_id", "reward_id", "status", "points_used", "voucher_code", "note",
		"requested_at", "processed_at", "processed_by", "expires_at", "used_at"}
	ticketCols = []string{"id", "reference", "user_id", "subject", "message", "priority", "status",
		"assigned_to", "created_at", "updated_at"}
)

// newCtx builds a request context for an authenticated caller.
func newCtx(method, target, body string, userID uint64, role string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != 0 {
		c.Set("user_id", userID)
		c.Set("role", role)
	}
	return c, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newRedeemHandler(db *sql.DB) *RedeemHandler {
	requests := repository.NewRedeemRequestRepo(db)
	ledger := service.NewLedger(db, repository.NewUserRepo(db), repository.NewTransactionRepo(db), 10000)
	red := service.NewRedemption(db, ledger, repository.NewRewardRepo(db), requests)
	return NewRedeemHandler(requests, red, nil)
}

func TestFailStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"bad request", invalid("name is required"), http.StatusBadRequest},
		{"insufficient points", fmt.Errorf("create: %w", loyalty.ErrInsufficientPoints), http.StatusUnprocessableEntity},
		{"tier", loyalty.ErrInsufficientTier, http.StatusUnprocessableEntity},
		{"purchase too small", loyalty.ErrPurchaseTooSmall, http.StatusUnprocessableEntity},
		{"balance overflow", loyalty.ErrBalanceOverflow, http.StatusUnprocessableEntity},
		{"deactivated account", fmt.Errorf("create: %w", service.ErrAccountInactive), http.StatusForbidden},
		{"transition", loyalty.ErrInvalidTransition, http.StatusConflict},
		{"expired", loyalty.ErrVoucherExpired, http.StatusConflict},
		{"not found", repository.ErrNotFound, http.StatusNotFound},
		{"forbidden", repository.ErrForbidden, http.StatusForbidden},
		{"email", repository.ErrEmailExists, http.StatusConflict},
		{"conflict", repository.ErrConflict, http.StatusConflict},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newCtx(http.MethodGet, "/", "", 0, "")
			require.NoError(t, fail(c, tt.err, "op"))
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, false, decode(t, rec)["success"])
		})
	}
}

func TestFailHidesInternalErrors(t *testing.T) {
	c, rec := newCtx(http.MethodGet, "/", "", 0, "")
	require.NoError(t, fail(c, errors.New("dial tcp 10.0.0.3:3306"), "load reward"))
	assert.Equal(t, "load reward failed", decode(t, rec)["message"])
}

func TestRedeemCreateRequiresReward(t *testing.T) {
	db, mock := newMock(t)
	h := newRedeemHandler(db)

	c, rec := newCtx(http.MethodPost, "/v1/redeem-requests", `{}`, 7, "customer")
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "reward_id is required", decode(t, rec)["message"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemCreateInsufficientPoints(t *testing.T) {
	db, mock := newMock(t)
	h := newRedeemHandler(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT points, highest_points, is_active FROM users WHERE id=\? FOR UPDATE`).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"points", "highest_points", "is_active"}).AddRow(300, 300, true))
	mock.ExpectQuery(`FROM rewards WHERE id=\? LOCK IN SHARE MODE`).WithArgs(3).
		WillReturnRows(sqlmock.NewRows(rewardCols).AddRow(3, "Bronze voucher", nil, 400, 30, true, "Bronze", nil, now, now))
	mock.ExpectRollback()

	c, rec := newCtx(http.MethodPost, "/v1/redeem-requests", `{"reward_id":3}`, 7, "customer")
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, userMessages[loyalty.ErrInsufficientPoints], decode(t, rec)["message"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemApproveProcessedRequestConflicts(t *testing.T) {
	db, mock := newMock(t)
	h := newRedeemHandler(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM redeem_requests rr WHERE rr.id=\? FOR UPDATE`).WithArgs(11).
		WillReturnRows(sqlmock.NewRows(redeemCols).
			AddRow(11, 7, 3, "rejected", 400, nil, nil, now, now, 2, nil, nil))
	mock.ExpectRollback()

	c, rec := newCtx(http.MethodPost, "/v1/redeem-requests/11/approve", "", 2, "manager")
	c.SetParamNames("id")
	c.SetParamValues("11")
	require.NoError(t, h.Approve(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemListRejectsUnknownStatus(t *testing.T) {
	db, mock := newMock(t)
	h := newRedeemHandler(db)

	c, rec := newCtx(http.MethodGet, "/v1/redeem-requests?status=lost", "", 2, "manager")
	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectTicket(mock sqlmock.Sqlmock, id, owner uint64, status string) {
	now := time.Now()
	mock.ExpectQuery(`FROM support_tickets WHERE id=\?`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows(ticketCols).
			AddRow(id, "TCK-1", owner, "Missing points", "My purchase was not credited", "normal", status, nil, now, now))
	mock.ExpectQuery(`FROM ticket_replies WHERE ticket_id=\?`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "ticket_id", "author_id", "message", "created_at"}))
}

func TestTicketGetVisibility(t *testing.T) {
	tests := []struct {
		name   string
		caller uint64
		role   string
		want   int
	}{
		{"owner", 7, "customer", http.StatusOK},
		{"other customer", 8, "customer", http.StatusNotFound},
		{"manager", 2, "manager", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			expectTicket(mock, 5, 7, "open")
			h := NewTicketHandler(repository.NewSupportTicketRepo(db), nil, nil)

			c, rec := newCtx(http.MethodGet, "/v1/support-tickets/5", "", tt.caller, tt.role)
			c.SetParamNames("id")
			c.SetParamValues("5")
			require.NoError(t, h.Get(c))
			assert.Equal(t, tt.want, rec.Code)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTicketReplyToClosedTicket(t *testing.T) {
	db, mock := newMock(t)
	expectTicket(mock, 5, 7, "closed")
	h := NewTicketHandler(repository.NewSupportTicketRepo(db), nil, nil)

	c, rec := newCtx(http.MethodPost, "/v1/support-tickets/5/replies", `{"message":"any news?"}`, 7, "customer")
	c.SetParamNames("id")
	c.SetParamValues("5")
	require.NoError(t, h.Reply(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketCreateValidatesPriority(t *testing.T) {
	h := NewTicketHandler(nil, nil, nil)
	c, rec := newCtx(http.MethodPost, "/v1/support-tickets",
		`{"subject":"Card lost","message":"please help","priority":"urgent"}`, 7, "customer")
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "priority must be one of: low, normal, high", decode(t, rec)["message"])
}

func TestActivityListRejectsBadActor(t *testing.T) {
	h := NewActivityHandler(nil)
	c, rec := newCtx(http.MethodGet, "/v1/activity-logs?actor_id=abc", "", 1, "admin")
	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIntQueryClamps(t *testing.T) {
	c, _ := newCtx(http.MethodGet, "/?days=900&top=-3", "", 0, "")
	assert.Equal(t, 365, intQuery(c, "days", 30, 365))
	assert.Equal(t, 10, intQuery(c, "top", 10, 50))
	assert.Equal(t, 5, intQuery(c, "missing", 5, 50))
}

func TestReady(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("gone"))
	c, rec := newCtx(http.MethodGet, "/readyz", "", 0, "")
	require.NoError(t, Ready(db)(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	mock.ExpectPing()
	c, rec = newCtx(http.MethodGet, "/readyz", "", 0, "")
	require.NoError(t, Ready(db)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidationMessage(t *testing.T) {
	v := NewValidator()
	type req struct {
		Email string `json:"email" validate:"required,email"`
		Name  string `json:"name" validate:"max=3"`
	}
	assert.Equal(t, "email is required", validationMessage(v.Validate(req{})))
	assert.Equal(t, "email must be a valid email", validationMessage(v.Validate(req{Email: "nope"})))
	assert.Equal(t, "name must be at most 3", validationMessage(v.Validate(req{Email: "a@b.co", Name: "Long"})))
	assert.Equal(t, "invalid request", validationMessage(errors.New("x")))
}

func TestGrantPointsUpperBound(t *testing.T) {
	h := NewCustomerHandler(nil, nil, nil, nil)
	c, rec := newCtx(http.MethodPost, "/v1/customers/7/points",
		`{"points":9223372036854775807,"description":"goodwill"}`, 2, "manager")
	c.SetParamNames("id")
	c.SetParamValues("7")
	require.NoError(t, h.GrantPoints(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "points must be at most 1000000", decode(t, rec)["message"])
}
