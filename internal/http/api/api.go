// Package api registers the public HTTP surface and its middleware.
package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/config"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/generation"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/http/api/handlers"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/models"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/ratelimit"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/security"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/usage"
	"gorm.io/gorm"
)

// RegisterRoutes registers public and authenticated routes under /v0.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, governor *ratelimit.Governor, svc *generation.Service, recorder *usage.Recorder) {
	if r == nil || db == nil {
		return
	}

	r.GET("/healthz", handlers.Health)

	v0 := r.Group("/v0")

	authHandler := handlers.NewAuthHandler(db, cfg.JWT)
	v0.POST("/auth/register", authHandler.Register)
	v0.POST("/auth/login", authHandler.Login)
	v0.POST("/auth/login/totp", authHandler.LoginTOTP)
	v0.POST("/auth/reset-password", authHandler.ResetPassword)

	authed := v0.Group("")
	authed.Use(userAuthMiddleware(db, cfg.JWT))

	profileHandler := handlers.NewProfileHandler(db)
	authed.GET("/profile", profileHandler.Get)
	authed.PUT("/profile/password", profileHandler.ChangePassword)

	mfaHandler := handlers.NewMFAHandler(db)
	authed.GET("/mfa/status", mfaHandler.Status)
	authed.POST("/mfa/totp/prepare", mfaHandler.PrepareTOTP)
	authed.POST("/mfa/totp/confirm", mfaHandler.ConfirmTOTP)
	authed.POST("/mfa/totp/disable", mfaHandler.DisableTOTP)

	postHandler := handlers.NewPostHandler(db)
	authed.GET("/posts", postHandler.List)
	authed.POST("/posts", postHandler.Create)
	authed.GET("/posts/:id", postHandler.Get)
	authed.PUT("/posts/:id", postHandler.Update)
	authed.DELETE("/posts/:id", postHandler.Delete)

	// IP ceiling applies before identity resolution, then the per-user
	// ceiling inside the handler path.
	ai := v0.Group("/ai")
	ai.Use(ipRateLimitMiddleware(governor))
	ai.Use(userAuthMiddleware(db, cfg.JWT))

	aiHandler := handlers.NewAIHandler(db, governor, svc, recorder)
	ai.POST("/generate", aiHandler.Generate)
	ai.POST("/grammar", aiHandler.Grammar)
	ai.POST("/enhance", aiHandler.Enhance)
	ai.POST("/titles", aiHandler.Titles)
	ai.GET("/usage", aiHandler.Usage)
}

// userAuthMiddleware validates user JWTs and loads the user into context.
func userAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			handlers.AbortUnauthorized(c, "missing authorization header")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			handlers.AbortUnauthorized(c, "invalid authorization format")
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			handlers.AbortUnauthorized(c, "empty token")
			return
		}

		claims, errJWT := security.ParseToken(jwtCfg.Secret, token)
		if errJWT != nil {
			handlers.AbortUnauthorized(c, "invalid token")
			return
		}

		var user models.User
		if errFind := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; errFind != nil {
			handlers.AbortUnauthorized(c, "user not found")
			return
		}
		if user.Disabled {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{"code": "forbidden", "message": "user disabled"},
			})
			return
		}

		c.Set("userID", user.ID)
		c.Next()
	}
}

// ipRateLimitMiddleware enforces the anonymous per-IP ceiling.
func ipRateLimitMiddleware(governor *ratelimit.Governor) gin.HandlerFunc {
	return func(c *gin.Context) {
		if governor == nil {
			c.Next()
			return
		}
		if errAllow := governor.AllowIP(c.Request.Context(), c.ClientIP(), c.FullPath()); errAllow != nil {
			handlers.AbortError(c, errAllow)
			return
		}
		c.Next()
	}
}
