package admin

import (
	"crypto/subtle"
	"net/http"
	"strings"

	handlers "github.com/adcopysurge/backend/internal/http/api/admin/handlers"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RegisterAdminRoutes registers health, metrics and token-guarded admin routes.
// Admin routes are not registered when token is empty.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, ledger handlers.CreditAdmin, token string) {
	if r == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	token = strings.TrimSpace(token)
	if token == "" {
		log.Warn("admin token not configured, admin routes disabled")
		return
	}
	if ledger == nil {
		return
	}

	authed := r.Group("/v0/admin")
	authed.Use(adminAuthMiddleware(token))

	creditHandler := handlers.NewCreditAdminHandler(ledger)
	authed.GET("/credits/:user_id", creditHandler.Get)
	authed.POST("/credits/:user_id/bonus", creditHandler.Bonus)
	authed.POST("/credits/:user_id/reset", creditHandler.Reset)
	authed.POST("/credits/reset-due", creditHandler.ResetDue)
}

// adminAuthMiddleware validates the static admin bearer token.
func adminAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}
