package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	authpkg "github.com/octobees/contact-enricher/internal/auth"
)

// JWT validates bearer tokens and stores the caller's subject and role in the
// request context.
func JWT(manager *authpkg.JWTManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid authorization header"})
			}

			claims, err := manager.ParseToken(strings.TrimSpace(token))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}

			c.Set(ContextKeySubject, claims.Subject)
			c.Set(ContextKeyRole, claims.Role)

			return next(c)
		}
	}
}
