package front

import (
	"net/http"
	"strings"

	handlers "github.com/adcopysurge/backend/internal/http/api/front/handlers"

	"github.com/gin-gonic/gin"
)

// HeaderUserID carries the caller identity set by the upstream auth gateway.
const HeaderUserID = "X-User-ID"

const maxUserIDLen = 255

// Deps groups the services the front API needs.
type Deps struct {
	Credits  handlers.CreditReader
	Analyzer handlers.Analyzer
	Limiter  handlers.RateLimiter
	Resolver handlers.LimitResolver
}

// RegisterFrontRoutes registers user-facing routes under /v0/front.
func RegisterFrontRoutes(r *gin.Engine, deps Deps) {
	if r == nil {
		return
	}

	frontGroup := r.Group("/v0/front")
	frontGroup.Use(userIdentityMiddleware())

	if deps.Credits != nil {
		creditHandler := handlers.NewCreditFrontHandler(deps.Credits)
		frontGroup.GET("/credits", creditHandler.Get)
		frontGroup.GET("/credits/transactions", creditHandler.Transactions)
	}

	if deps.Analyzer != nil {
		analysisHandler := handlers.NewAnalysisFrontHandler(deps.Analyzer, deps.Limiter, deps.Resolver)
		frontGroup.POST("/analyses", analysisHandler.Create)
		frontGroup.GET("/analyses", analysisHandler.List)
		frontGroup.GET("/analyses/:id", analysisHandler.Get)
	}
}

// userIdentityMiddleware requires the gateway identity header and stores it on the context.
func userIdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" || len(userID) > maxUserIDLen {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(handlers.ContextUserIDKey, userID)
		c.Next()
	}
}
