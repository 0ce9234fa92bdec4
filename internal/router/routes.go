package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/contact-enricher/internal/auth"
	"github.com/octobees/contact-enricher/internal/config"
	"github.com/octobees/contact-enricher/internal/handler"
	middlewarepkg "github.com/octobees/contact-enricher/internal/middleware"
)

// Handlers aggregates HTTP handlers used by the router.
type Handlers struct {
	Enrich *handler.EnrichHandler
}

// Register wires all HTTP routes for the API. The lookup route exists only
// when persistence is configured.
func Register(e *echo.Echo, cfg *config.Config, jwtManager *auth.JWTManager, handlers Handlers, persistence bool) {
	e.GET("/healthz", func(c echo.Context) error {
		return handler.Success(c, http.StatusOK, "service healthy", nil)
	})

	secured := e.Group("")
	secured.Use(middlewarepkg.JWT(jwtManager))
	secured.Use(middlewarepkg.RequireRole(auth.RoleService, auth.RoleAdmin))

	secured.POST("/enrich", handlers.Enrich.Enrich, middlewarepkg.RateLimiter(cfg.RateLimitEnrich, "/enrich"))
	if persistence {
		secured.GET("/enrichments/:lead_id", handlers.Enrich.Get)
	}
}
