package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/loyalty-rewards/internal/authz"
	"github.com/iliyamo/loyalty-rewards/internal/utils"
)

// RequireRole aborts with 403 unless the authenticated role is one of
// roles.  It runs after JWTAuth.
func RequireRole(roles ...authz.Role) echo.MiddlewareFunc {
	allowed := make(map[authz.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := Role(c)
			if !ok || !allowed[role] {
				return utils.Failure(c, http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}

// RequireCapability aborts with 403 unless the authenticated role holds
// capability in the authz table.
func RequireCapability(capability authz.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := Role(c)
			if !ok || !authz.Can(role, capability) {
				return utils.Failure(c, http.StatusForbidden, "you do not have permission to perform this action")
			}
			return next(c)
		}
	}
}
