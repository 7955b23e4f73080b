package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medibook/medibook/internal/platform/validation"
)

// StatusError is implemented by domain errors that map to an HTTP status.
// The error text is sent to the client as {"error": text}.
type StatusError interface {
	error
	StatusCode() int
}

const internalErrorMessage = "Internal Server Error"

// ErrorHandler returns an echo.HTTPErrorHandler rendering every error as JSON.
// Unknown errors are logged and hidden behind a generic 500.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := renderError(err)
		if status == http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("unhandled error")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write error response")
		}
	}
}

func renderError(err error) (int, any) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return verr.StatusCode(), verr.Body()
	}

	var serr StatusError
	if errors.As(err, &serr) {
		return serr.StatusCode(), map[string]string{"error": serr.Error()}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil {
			if status, body := renderError(he.Internal); status != http.StatusInternalServerError {
				return status, body
			}
		}
		switch msg := he.Message.(type) {
		case map[string]string, map[string]any:
			return he.Code, msg
		case string:
			if he.Code >= http.StatusInternalServerError {
				msg = internalErrorMessage
			}
			return he.Code, map[string]string{"error": msg}
		default:
			return he.Code, map[string]string{"error": http.StatusText(he.Code)}
		}
	}

	return http.StatusInternalServerError, map[string]string{"error": internalErrorMessage}
}
