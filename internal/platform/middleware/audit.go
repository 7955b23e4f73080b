package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medibook/medibook/internal/platform/auth"
)

// AuditEntry records who changed what, when and from where.
type AuditEntry struct {
	UserID     string
	Role       string
	Resource   string
	ResourceID string
	Action     string // create, update, delete
	IPAddress  string
	UserAgent  string
	Path       string
	Method     string
	Timestamp  time.Time
	RequestID  string
	StatusCode int
}

// AuditRecorder persists audit entries. Without one, entries only go to the log.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit logs every state-changing request under /api/v1/: bookings,
// booking updates and cancellations, doctor and slot administration.
// Reads and authentication calls are not audited.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !isAuditable(c.Request()) {
				return next(c)
			}

			err := next(c)

			// The JWT middleware replaces the request, so read it after next.
			req := c.Request()
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else if err != nil {
				status = errorStatus(err)
			}

			entry := AuditEntry{
				Role:       string(auth.RoleFromContext(req.Context())),
				Resource:   extractResource(req.URL.Path),
				ResourceID: extractResourceID(c),
				Action:     httpMethodToAction(req.Method),
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				Path:       req.URL.Path,
				Method:     req.Method,
				Timestamp:  time.Now().UTC(),
				StatusCode: status,
			}
			if uid := auth.UserIDFromContext(req.Context()); uid != uuid.Nil {
				entry.UserID = uid.String()
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Str("role", entry.Role).
				Str("resource", entry.Resource).
				Str("resource_id", entry.ResourceID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("mutation")

			return err
		}
	}
}

func errorStatus(err error) int {
	status, _ := renderError(err)
	return status
}

func isAuditable(req *http.Request) bool {
	if req.Method == http.MethodGet || req.Method == http.MethodHead || req.Method == http.MethodOptions {
		return false
	}
	path := req.URL.Path
	return strings.HasPrefix(path, "/api/v1/") && !strings.HasPrefix(path, "/api/v1/auth/")
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// extractResource returns the collection an /api/v1 path addresses. Nested
// collections win: /api/v1/doctors/<id>/slots -> slots.
func extractResource(path string) string {
	segments := strings.Split(strings.Trim(strings.TrimPrefix(path, "/api/v1/"), "/"), "/")
	if len(segments) >= 3 && segments[2] != "" {
		return segments[2]
	}
	if len(segments) > 0 && segments[0] != "" {
		return segments[0]
	}
	return "unknown"
}

func extractResourceID(c echo.Context) string {
	if id := c.Param("id"); id != "" {
		return id
	}
	segments := strings.Split(strings.Trim(strings.TrimPrefix(c.Request().URL.Path, "/api/v1/"), "/"), "/")
	if len(segments) >= 2 {
		if _, err := uuid.Parse(segments[1]); err == nil {
			return segments[1]
		}
	}
	return ""
}
