package doctor

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/medibook/medibook/internal/domain/booking"
	"github.com/medibook/medibook/internal/platform/auth"
)

// Handler serves the /doctors endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a doctor handler backed by svc.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the /doctors endpoints. Reads need a USER, writes
// an ADMIN.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/doctors")
	user := auth.RequireRole(auth.RoleUser)
	admin := auth.RequireRole(auth.RoleAdmin)

	g.GET("", h.ListDoctors, user)
	g.GET("/:id", h.GetDoctor, user)
	g.GET("/:id/slots", h.ListSlots, user)
	g.POST("", h.CreateDoctor, admin)
	g.POST("/:id/slots", h.CreateSlot, admin)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	doctors, err := h.svc.ListDoctors(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"doctors": doctors})
}

func (h *Handler) GetDoctor(c echo.Context) error {
	d, err := h.svc.GetDoctor(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"doctor": d})
}

// ListSlots serves GET /doctors/:id/slots; ?free=true hides booked slots.
func (h *Handler) ListSlots(c echo.Context) error {
	onlyFree, _ := strconv.ParseBool(c.QueryParam("free"))
	slots, err := h.svc.ListSlots(c.Request().Context(), c.Param("id"), onlyFree)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"slots": slots})
}

func (h *Handler) CreateDoctor(c echo.Context) error {
	var in CreateDoctorInput
	if err := c.Bind(&in); err != nil {
		return booking.ErrInvalidInput
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	d, err := h.svc.CreateDoctor(c.Request().Context(), in.Name, in.Image)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"doctor": d})
}

func (h *Handler) CreateSlot(c echo.Context) error {
	var in CreateSlotInput
	if err := c.Bind(&in); err != nil {
		return booking.ErrInvalidInput
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	sl, err := h.svc.CreateSlot(c.Request().Context(), c.Param("id"), in.Date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"slot": sl})
}
