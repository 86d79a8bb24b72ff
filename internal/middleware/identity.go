package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/loyalty-rewards/internal/authz"
)

// UserID returns the authenticated user id set by JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get("user_id").(uint64)
	return id, ok && id != 0
}

// Role returns the authenticated role set by JWTAuth.
func Role(c echo.Context) (authz.Role, bool) {
	s, ok := c.Get("role").(string)
	if !ok {
		return "", false
	}
	return authz.ParseRole(s)
}

// userKey identifies the caller for rate limit keys and logs; "anon"
// when unauthenticated.
func userKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
