package booking

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medibook/medibook/internal/platform/auth"
	"github.com/medibook/medibook/pkg/pagination"
)

// Handler serves the /appointments endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a booking handler backed by svc.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the /appointments endpoints. Every route requires
// an authenticated USER or ADMIN.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/appointments", auth.RequireRole(auth.RoleUser))
	g.GET("", h.ListAppointments)
	g.GET("/:id", h.GetAppointment)
	g.POST("", h.CreateAppointment)
	g.PUT("/:id", h.UpdateAppointment)
	g.DELETE("/:id", h.DeleteAppointment)
}

func caller(c echo.Context) (auth.Identity, error) {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return auth.Identity{}, auth.Failure(http.StatusUnauthorized,
			"Access Denied. No access token provided.", auth.CodeAccessTokenMissing)
	}
	return id, nil
}

// bindAndValidate decodes the JSON body into in and runs its validate tags.
// A body that does not decode is reported as invalid data.
func bindAndValidate(c echo.Context, in any) error {
	if err := c.Bind(in); err != nil {
		return ErrInvalidInput
	}
	return c.Validate(in)
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var in CreateAppointmentInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	appt, err := h.svc.CreateAppointment(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"appointment": appt})
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	appt, err := h.svc.GetAppointment(c.Request().Context(), id, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"appointment": appt})
}

func (h *Handler) ListAppointments(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAppointments(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewPage("appointments", items, total, pg))
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var in UpdateAppointmentInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	appt, err := h.svc.UpdateAppointment(c.Request().Context(), id, c.Param("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"appointment": appt})
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteAppointment(c.Request().Context(), id, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Appointment deleted successfully"})
}
