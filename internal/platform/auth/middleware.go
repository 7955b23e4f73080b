package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderRefreshToken  = "X-Refresh-Token"
)

// Error codes returned in the "error" field of authentication failures.
const (
	CodeAccessTokenMissing  = "access-token-missing"
	CodeRefreshTokenMissing = "refresh-token-missing"
	CodeAccessTokenExpired  = "access-token-expired"
	CodeRefreshTokenInvalid = "refresh-token-invalid"
)

type JWTConfig struct {
	Tokens *TokenIssuer
	// Skipper bypasses authentication for public endpoints. May be nil.
	Skipper func(echo.Context) bool
}

// Failure builds the {"message","error"} body used by authentication errors.
func Failure(status int, message, code string) *echo.HTTPError {
	return echo.NewHTTPError(status, map[string]string{
		"message": message,
		"error":   code,
	})
}

// JWTMiddleware requires an access token in Authorization and a refresh token
// in X-Refresh-Token, verifies the access token and stores the caller's
// Identity in the request context.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			accessToken := BearerToken(c.Request().Header.Get(HeaderAuthorization))
			if accessToken == "" {
				return Failure(http.StatusUnauthorized,
					"Access Denied. No access token provided.", CodeAccessTokenMissing)
			}
			if c.Request().Header.Get(HeaderRefreshToken) == "" {
				return Failure(http.StatusUnauthorized,
					"Access Denied. No refresh token provided.", CodeRefreshTokenMissing)
			}

			id, err := cfg.Tokens.ParseAccess(accessToken)
			if err != nil {
				msg := "Access Denied. Invalid access token."
				if errors.Is(err, ErrTokenExpired) {
					msg = "Access Denied. Access token expired."
				}
				return Failure(http.StatusUnauthorized, msg, CodeAccessTokenExpired)
			}

			c.Set("user_id", id.UserID.String())
			c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), id)))
			return next(c)
		}
	}
}

// BearerToken extracts the token from an Authorization header value. Both
// "Bearer <token>" and a bare token are accepted.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	if strings.ContainsRune(header, ' ') || strings.EqualFold(header, "bearer") {
		return ""
	}
	return header
}
