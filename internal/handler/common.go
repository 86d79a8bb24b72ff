package handler // handler defines http handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/loyalty-rewards/internal/authz"
	"github.com/iliyamo/loyalty-rewards/internal/loyalty"
	"github.com/iliyamo/loyalty-rewards/internal/middleware"
	"github.com/iliyamo/loyalty-rewards/internal/repository"
	"github.com/iliyamo/loyalty-rewards/internal/service"
	"github.com/iliyamo/loyalty-rewards/internal/utils"
)

const dbTimeout = 5 * time.Second

// getUserID extracts the user_id from echo.Context and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		if t != 0 {
			return t, nil
		}
	case float64:
		if t > 0 {
			return uint64(t), nil
		}
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil && n != 0 {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// callerRole returns the authenticated role.
func callerRole(c echo.Context) (authz.Role, bool) {
	return middleware.Role(c)
}

// can reports whether the caller's role holds capability.
func can(c echo.Context, capability authz.Capability) bool {
	role, ok := callerRole(c)
	return ok && authz.Can(role, capability)
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// pageFrom reads ?limit and ?offset; repository.Page clamps them.
func pageFrom(c echo.Context) repository.Page {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	return repository.Page{Limit: limit, Offset: offset}.Normalize()
}

func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// badRequest carries a validation message that is safe to return.
type badRequest struct{ msg string }

func (b *badRequest) Error() string { return b.msg }

// bind decodes the body into dst and runs struct validation.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return &badRequest{msg: "invalid body"}
	}
	if err := c.Validate(dst); err != nil {
		return &badRequest{msg: validationMessage(err)}
	}
	return nil
}

// userMessages are safe to show end users.
var userMessages = map[error]string{
	loyalty.ErrInsufficientPoints: "You do not have enough points for this reward.",
	loyalty.ErrInsufficientTier:   "Your loyalty tier is too low for this reward.",
	loyalty.ErrRewardInactive:     "This reward is no longer available.",
	loyalty.ErrPurchaseTooSmall:   "The purchase amount is too small to earn points.",
	loyalty.ErrInvalidAmount:      "The amount must be positive and within the allowed range.",
	loyalty.ErrBalanceOverflow:    "This would exceed the maximum points balance.",
	loyalty.ErrInvalidTransition:  "This request has already been processed.",
	loyalty.ErrVoucherExpired:     "This voucher has expired.",
}

// fail maps domain and repository errors onto HTTP responses.  Unknown
// errors are logged and reported as a generic 500.
func fail(c echo.Context, err error, op string) error {
	for _, target := range []error{loyalty.ErrInsufficientPoints, loyalty.ErrInsufficientTier,
		loyalty.ErrRewardInactive, loyalty.ErrPurchaseTooSmall, loyalty.ErrInvalidAmount, loyalty.ErrBalanceOverflow} {
		if errors.Is(err, target) {
			logrus.WithFields(logrus.Fields{"op": op, "reason": target.Error()}).Warn("rejected")
			return utils.Failure(c, http.StatusUnprocessableEntity, userMessages[target])
		}
	}
	var br *badRequest
	switch {
	case errors.As(err, &br):
		return utils.Failure(c, http.StatusBadRequest, br.msg)
	case errors.Is(err, loyalty.ErrInvalidTransition):
		return utils.Failure(c, http.StatusConflict, userMessages[loyalty.ErrInvalidTransition])
	case errors.Is(err, loyalty.ErrVoucherExpired):
		return utils.Failure(c, http.StatusConflict, userMessages[loyalty.ErrVoucherExpired])
	case errors.Is(err, utils.ErrPasswordTooLong):
		return utils.Failure(c, http.StatusBadRequest, "password must be at most 72 bytes")
	case errors.Is(err, repository.ErrNotFound):
		return utils.Failure(c, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrAccountInactive):
		return utils.Failure(c, http.StatusForbidden, "account is deactivated")
	case errors.Is(err, repository.ErrForbidden):
		return utils.Failure(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, repository.ErrEmailExists):
		return utils.Failure(c, http.StatusConflict, "email already exists")
	case errors.Is(err, repository.ErrConflict):
		return utils.Failure(c, http.StatusConflict, "conflict")
	}
	logrus.WithError(err).WithField("op", op).Error("request failed")
	return utils.Failure(c, http.StatusInternalServerError, op+" failed")
}

func invalid(msg string) error { return &badRequest{msg: msg} }
