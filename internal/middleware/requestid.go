package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const maxRequestIDLen = 128

// RequestID reuses the caller's X-Request-ID or mints a UUID, and echoes it
// on the response. Oversized incoming ids are replaced.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(echo.HeaderXRequestID)
			if rid == "" || len(rid) > maxRequestIDLen {
				rid = uuid.NewString()
			}

			c.Set(ContextKeyRequestID, rid)
			c.Response().Header().Set(echo.HeaderXRequestID, rid)

			return next(c)
		}
	}
}

// RequestIDFromContext extracts the request identifier if available.
func RequestIDFromContext(c echo.Context) string {
	if val, ok := c.Get(ContextKeyRequestID).(string); ok {
		return val
	}
	return ""
}
