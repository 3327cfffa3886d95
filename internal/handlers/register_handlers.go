package handlers

import (
	"net/http"

	"github.com/SscSPs/swap_exchange_app/cmd/docs"
	portssvc "github.com/SscSPs/swap_exchange_app/internal/core/ports/services"
	"github.com/SscSPs/swap_exchange_app/internal/middleware"
	"github.com/SscSPs/swap_exchange_app/internal/platform/config"
	"github.com/SscSPs/swap_exchange_app/internal/platform/metrics"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/ulule/limiter/v3"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces.
// rateLimiter guards quote creation and price reads; nil disables rate limiting.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	rateLimiter *limiter.Limiter,
	m *metrics.Metrics,
) {

	// Add health check route
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	guard := func(c *gin.Context) { c.Next() }
	if rateLimiter != nil {
		guard = middleware.RateLimit(rateLimiter)
	}

	// Public swap API used by the browser UI
	public := r.Group("")
	registerQuoteRoutes(public, services, guard, cfg.CORSAllowedOrigins)
	registerPriceRoutes(public, services.Price, guard)

	// Operator console
	admin := r.Group("/admin", middleware.AdminAuth(cfg.JWTSecret, cfg.JWTIssuer, cfg.AdminRole))
	registerAdminQuoteRoutes(admin, services.Lifecycle, services.Query)

	// Settlement worker callbacks
	settlement := r.Group("/settlement", middleware.ServiceTokenAuth(cfg.ServiceTokenHash))
	registerSettlementRoutes(settlement, services.Lifecycle)

	// Swagger routes (typically public or conditionally available)
	setupSwaggerRoutes(r, cfg)
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
