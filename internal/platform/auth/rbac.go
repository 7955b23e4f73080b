package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that checks if the caller has one of the
// specified roles. ADMIN passes every check.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFromContext(c.Request().Context())
			if !ok {
				return Failure(http.StatusUnauthorized,
					"Access Denied. No access token provided.", CodeAccessTokenMissing)
			}
			if id.IsAdmin() {
				return next(c)
			}
			for _, required := range roles {
				if id.Role == required {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "Access denied")
		}
	}
}
