package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"copper-backend/internal/accounts"
	"copper-backend/internal/samples"
	"copper-backend/internal/services/health"
	"copper-backend/internal/shared/config"
	"copper-backend/internal/shared/metrics"
	"copper-backend/internal/shared/server/middleware"
)

// Rate limit groups.
const (
	GroupDefault     = "DEFAULT"
	GroupCredentials = "CREDENTIALS"
	GroupUpload      = "UPLOAD"
)

// DefaultRateLimitRules apply per account, or per client IP before login.
func DefaultRateLimitRules() map[string]middleware.RateLimitRule {
	return map[string]middleware.RateLimitRule{
		GroupCredentials: {Rate: 0.2, Burst: 10},
		GroupUpload:      {Rate: 0.5, Burst: 10},
	}
}

// RouterDeps carries everything NewRouter wires.
type RouterDeps struct {
	Config          config.Config
	Sessions        *middleware.Sessions
	AccountsHandler *accounts.Handler
	SamplesHandler  *samples.Handler
	Health          *health.Service
	Limiter         middleware.Limiter
	RateLimitRules  map[string]middleware.RateLimitRule
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.MaxMultipartMemory = 8 << 20

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		deps.Sessions.Load(),
	)

	rules := deps.RateLimitRules
	if rules == nil {
		rules = DefaultRateLimitRules()
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(nil)
	}
	limitGroup := func(group string) gin.HandlerFunc {
		return middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        rules,
			DefaultGroup: group,
			Limiter:      limiter,
		})
	}

	r.GET("/", landingHandler)
	r.GET("/healthz", healthHandler(deps.Health))
	r.GET("/metrics", metrics.Handler())

	requireLogin := middleware.RequireLogin()
	deps.AccountsHandler.RegisterRoutes(r, requireLogin, limitGroup(GroupCredentials))

	protected := r.Group("/", requireLogin)
	deps.SamplesHandler.RegisterRoutes(protected, limitGroup(GroupUpload))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "not_found", "message": "page not found"}})
	})
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
