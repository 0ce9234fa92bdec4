package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/octobees/contact-enricher/internal/config"
)

// RateLimiter applies one shared token bucket to requests routed to path.
// A zero config disables limiting.
func RateLimiter(cfg config.RateLimitConfig, path string) echo.MiddlewareFunc {
	if cfg.Requests <= 0 || cfg.Interval <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	limit := rate.Limit(float64(cfg.Requests) / cfg.Interval.Seconds())
	limiter := rate.NewLimiter(limit, cfg.Requests)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() != path {
				return next(c)
			}
			if !limiter.Allow() {
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}
