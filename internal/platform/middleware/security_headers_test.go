package middleware

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestSecurityHeaders(t *testing.T) {
	notFound := func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "Appointment does not exist")
	}

	for name, tc := range map[string]struct {
		handler    echo.HandlerFunc
		wantStatus int
	}{
		"success": {okHandler, http.StatusNoContent},
		"error":   {notFound, http.StatusNotFound},
	} {
		t.Run(name, func(t *testing.T) {
			rec := serve(t, SecurityHeaders(), http.MethodGet, "/api/v1/appointments", nil, tc.handler)

			assert.Equal(t, tc.wantStatus, rec.Code)
			h := rec.Header()
			assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
			assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
			assert.Equal(t, "0", h.Get("X-XSS-Protection"))
			assert.Equal(t, "no-referrer", h.Get("Referrer-Policy"))
			assert.Equal(t, "no-store", h.Get("Cache-Control"))
			assert.Contains(t, h.Get("Content-Security-Policy"), "frame-ancestors 'none'")
			assert.Contains(t, h.Get("Strict-Transport-Security"), "max-age=31536000")
		})
	}
}
