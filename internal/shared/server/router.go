package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dochub-backend/internal/account"
	googleauth "dochub-backend/internal/auth"
	"dochub-backend/internal/documents"
	"dochub-backend/internal/shared/config"
	"dochub-backend/internal/shared/health"
	"dochub-backend/internal/shared/metrics"
	"dochub-backend/internal/shared/ratelimit"
	"dochub-backend/internal/shared/server/middleware"
	"dochub-backend/internal/shared/server/respond"
	"dochub-backend/internal/users"
)

// RouterDeps carries the handlers and cross-cutting components the router mounts.
type RouterDeps struct {
	Config          config.Config
	Resolver        middleware.PrincipalResolver
	Limiter         ratelimit.Limiter
	UserHandler     *users.Handler
	DocumentHandler *documents.Handler
	AccountHandler  *account.Handler
	GoogleAuth      *googleauth.GoogleService
	Health          *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
// Authenticated routes run address limiting, then principal resolution, then
// principal limiting, before any handler.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	RegisterValidators()

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.Metrics(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/healthz", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, health.Report{Status: health.StatusOK, Database: health.StatusDisabled})
			return
		}
		report := deps.Health.Ready(c.Request.Context())
		status := http.StatusOK
		if report.Status != health.StatusOK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth", middleware.RateLimit(deps.Limiter, middleware.ByAddress, middleware.StageAddress))
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterAuthRoutes(authGroup)
	}
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(authGroup)
	}

	protected := api.Group("",
		middleware.RateLimit(deps.Limiter, middleware.ByAddress, middleware.StageAddress),
		middleware.Auth(deps.Resolver),
		middleware.RateLimit(deps.Limiter, middleware.ByPrincipal, middleware.StagePrincipal),
	)
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(protected)
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(protected)
	}
	if deps.AccountHandler != nil {
		deps.AccountHandler.RegisterRoutes(protected)
		deps.AccountHandler.RegisterAdminRoutes(protected.Group("/admin", middleware.RequireSuperuser()))
	}

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
