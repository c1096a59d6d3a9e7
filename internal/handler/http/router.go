package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smartify-home/auth-service/internal/config"
	"github.com/smartify-home/auth-service/internal/service"
)

// NewRouter builds the service's HTTP surface: the public SRP/registration
// endpoints and the authenticated session-management endpoints.
func NewRouter(
	logger *zap.Logger,
	auth *service.AuthService,
	tokens *service.TokenService,
	cfg config.AuthConfig,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler := NewAuthHandler(logger, auth, tokens, cfg)

	v1 := router.Group("/api/v1/auth")
	{
		v1.POST("/register", handler.Register)
		v1.POST("/session", handler.InitSession)
		v1.POST("/login", handler.Login)
		v1.POST("/mfa/verify", handler.VerifyMFA)
		v1.POST("/refresh", handler.Refresh)

		authed := v1.Group("", RequireAuth(tokens, logger))
		{
			authed.POST("/logout", handler.Logout)
			authed.POST("/logout-all", handler.LogoutAll)
		}
	}

	return router
}

// requestLogger logs each request at debug with the fields worth grepping.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("http")
	return func(c *gin.Context) {
		c.Next()
		log.Debug("request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
		)
	}
}
