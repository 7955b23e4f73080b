package identity

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medibook/medibook/internal/platform/auth"
	"github.com/medibook/medibook/internal/platform/validation"
)

// Handler serves the /auth endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an auth handler backed by svc.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public /auth endpoints.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
}

func bindAndValidate(c echo.Context, in any) error {
	if err := c.Bind(in); err != nil {
		return validation.Fail("request body must be valid JSON")
	}
	return c.Validate(in)
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	if _, err := h.svc.Register(c.Request().Context(), in); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]string{"message": "User created successfully"})
}

func (h *Handler) Login(c echo.Context) error {
	var in LoginInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	u, pair, err := h.svc.Login(c.Request().Context(), in)
	if err != nil {
		return err
	}
	c.Response().Header().Set(auth.HeaderAuthorization, "Bearer "+pair.AccessToken)
	c.Response().Header().Set(auth.HeaderRefreshToken, pair.RefreshToken)
	return c.JSON(http.StatusOK, map[string]any{
		"message":  "Authentication succeed",
		"userInfo": UserInfo{Username: u.Username, Email: u.Email, Role: u.Role},
	})
}

func (h *Handler) Refresh(c echo.Context) error {
	refresh := strings.TrimSpace(c.Request().Header.Get(auth.HeaderRefreshToken))
	if refresh == "" {
		return auth.Failure(http.StatusForbidden,
			"Access denied. No refresh token provided.", auth.CodeRefreshTokenMissing)
	}
	access, err := h.svc.Refresh(c.Request().Context(), refresh)
	if err != nil {
		return auth.Failure(http.StatusUnauthorized,
			"Access denied. Invalid refresh token.", auth.CodeRefreshTokenInvalid)
	}
	c.Response().Header().Set(auth.HeaderAuthorization, "Bearer "+access)
	c.Response().Header().Set(auth.HeaderRefreshToken, refresh)
	return c.JSON(http.StatusOK, map[string]string{"message": "Access token refreshed successfully"})
}
