package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skillgap-backend/internal/analyses"
	"skillgap-backend/internal/catalogapi"
	"skillgap-backend/internal/servicecatalog"
	"skillgap-backend/internal/services/health"
	"skillgap-backend/internal/shared/config"
	"skillgap-backend/internal/shared/metrics"
	"skillgap-backend/internal/shared/server/middleware"
	"skillgap-backend/internal/shared/server/respond"
)

// RouterDeps carries the services the HTTP surface is built from.
type RouterDeps struct {
	Config   config.Config
	Analyses *analyses.Service
	Catalog  catalogapi.Catalog
	Models   catalogapi.ModelStatuser
	Services *servicecatalog.Registry
	Health   *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	healthHandler := func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		report := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	}
	r.GET("/health", healthHandler)
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler)
	api.Use(
		middleware.Auth(deps.Config.RequireIdentity),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    middleware.DefaultRateLimitRules(),
			GroupFor: middleware.AnalysisRateGroup,
		}),
	)
	registerMeRoutes(api)
	if deps.Analyses != nil {
		analyses.NewHandler(deps.Analyses).RegisterRoutes(api)
	}
	if deps.Catalog != nil && deps.Models != nil {
		catalogHandler := catalogapi.NewHandler(deps.Catalog, deps.Models)
		catalogHandler.RefreshGuard = middleware.AdminToken(deps.Config.AdminToken)
		catalogHandler.RegisterRoutes(api)
	}
	servicecatalog.NewHandler(deps.Services).RegisterRoutes(api)

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
