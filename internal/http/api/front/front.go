package front

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/optilift/entitlements/internal/config"
	handlers "github.com/optilift/entitlements/internal/http/api/front/handlers"
	"github.com/optilift/entitlements/internal/models"
	"github.com/optilift/entitlements/internal/profile"
	"github.com/optilift/entitlements/internal/ratelimit"
	"github.com/optilift/entitlements/internal/security"
	"github.com/optilift/entitlements/internal/usage"
	"gorm.io/gorm"
)

// RegisterFrontRoutes registers the end-user routes, middleware, and handlers.
func RegisterFrontRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, profiles *profile.Service, tracker *usage.Tracker, limiter *ratelimit.Manager) {
	if r == nil || db == nil {
		return
	}

	authHandler := handlers.NewAuthHandler(db, jwtCfg, profiles)
	r.POST("/v0/auth/signup", authHandler.Signup)
	r.POST("/v0/auth/login", authHandler.Login)

	planHandler := handlers.NewPlanHandler()
	r.GET("/v0/plans", planHandler.List)

	authed := r.Group("/v0")
	authed.Use(userAuthMiddleware(db, jwtCfg))

	profileHandler := handlers.NewProfileHandler(profiles)
	authed.GET("/me", profileHandler.Me)

	optimizeHandler := handlers.NewOptimizeHandler(profiles, tracker, limiter)
	authed.POST("/optimizations", optimizeHandler.Create)

	subscriptionHandler := handlers.NewSubscriptionHandler(profiles)
	authed.POST("/subscription/plan", subscriptionHandler.ChangePlan)
	authed.POST("/subscription/cancel", subscriptionHandler.Cancel)
}

// userAuthMiddleware validates user JWTs and loads user context.
func userAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
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

		claims, errJWT := security.ParseUserToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		userID, errParse := strconv.ParseUint(claims.UserID, 10, 64)
		if errParse != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var user models.User
		if errFind := db.WithContext(c.Request.Context()).First(&user, userID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		if !user.Active || user.Disabled {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account disabled"})
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("user", &user)
		c.Next()
	}
}
