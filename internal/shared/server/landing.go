package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"copper-backend/internal/services/health"
	"copper-backend/internal/shared/server/middleware"
	"copper-backend/internal/shared/server/respond"
)

func landingHandler(c *gin.Context) {
	if _, ok := middleware.AccountIDFromContext(c); ok {
		respond.Redirect(c, "/dashboard", "", "")
		return
	}
	respond.View(c, http.StatusOK, "Copper Water Analysis", gin.H{
		"links": gin.H{
			"login":    "/login",
			"register": "/register",
		},
	})
}

func healthHandler(svc *health.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if svc == nil {
			respond.OK(c, gin.H{"ok": true})
			return
		}
		ok, checks := svc.Status(c.Request.Context())
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, gin.H{"ok": ok, "checks": checks})
	}
}
