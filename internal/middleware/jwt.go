package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // prefix checking and trimming of the Authorization header

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware

	"github.com/iliyamo/loyalty-rewards/internal/utils" // token parsing and the JSON envelope
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// stores its subject and role in the request context under "user_id"
// (uint64) and "role" (string).  The secret must match the one used when
// issuing tokens.  Handlers read the values back through UserID and Role.
func JWTAuth(secret string) echo.MiddlewareFunc {
	// The outer function runs once when the middleware is registered.
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		// The returned handler runs for every request on the protected group.
		return func(c echo.Context) error {
			// A valid header is "Bearer <jwt>".  Anything else is rejected
			// with 401 before the token is looked at.
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return utils.Failure(c, http.StatusUnauthorized, "missing bearer token")
			}
			// ParseAccessToken checks the HMAC signature, the expiry and
			// that sub and role are present.
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return utils.Failure(c, http.StatusUnauthorized, "invalid token")
			}
			// Store the typed claims so downstream code needs no assertions
			// on raw JSON values.
			c.Set("user_id", claims.UserID)
			c.Set("role", claims.Role)
			// Call the next handler in the chain.
			return next(c)
		}
	}
}
