package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Logger writes one structured line per request. Errors are rendered here
// through c.Error so the logged status is the one the client receives.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			began := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logRequest(logger, c, began, err)
			return nil
		}
	}
}

func logRequest(logger zerolog.Logger, c echo.Context, began time.Time, err error) {
	status := c.Response().Status

	level := zerolog.InfoLevel
	switch {
	case status >= 500:
		level = zerolog.ErrorLevel
	case status >= 400:
		level = zerolog.WarnLevel
	}

	evt := logger.WithLevel(level)
	if level == zerolog.ErrorLevel && err != nil {
		evt = evt.Err(err)
	}
	if uid, ok := c.Get("user_id").(string); ok {
		evt = evt.Str("user_id", uid)
	}
	rid, _ := c.Get("request_id").(string)

	evt.Str("request_id", rid).
		Str("method", c.Request().Method).
		Str("path", c.Request().URL.Path).
		Str("route", c.Path()).
		Int("status", status).
		Dur("latency", time.Since(began)).
		Str("remote_ip", c.RealIP()).
		Msg("request")
}
