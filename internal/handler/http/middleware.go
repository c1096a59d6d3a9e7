package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smartify-home/auth-service/internal/domain/models"
	"github.com/smartify-home/auth-service/internal/service"
)

const identityContextKey = "authIdentity"

// Identity is the verified caller attached to the request context by
// RequireAuth.
type Identity struct {
	UserID  string
	Payload models.AccessTokenPayload
}

// DeviceID returns the device the access token was minted for. The value
// comes from the verified payload, never from a client-supplied header.
func (i Identity) DeviceID() string {
	return i.Payload.DeviceID
}

// RequireAuth verifies the access-token cookie and rejects the request with a
// vague 401 on any failure. The verified payload is stashed for handlers.
func RequireAuth(tokens *service.TokenService, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("auth_middleware")
	return func(c *gin.Context) {
		accessToken, err := c.Cookie(cookieAccessToken)
		if err != nil || accessToken == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, invalidRequestBody)
			return
		}

		payload, ok, err := tokens.VerifyToken(c.Request.Context(), accessToken, true)
		if err != nil {
			log.Error("token verification failed against durable store", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, invalidRequestBody)
			return
		}

		access, isAccess := payload.(models.AccessTokenPayload)
		if !isAccess {
			c.AbortWithStatusJSON(http.StatusUnauthorized, invalidRequestBody)
			return
		}

		c.Set(identityContextKey, Identity{
			UserID:  access.UserID,
			Payload: access,
		})
		c.Next()
	}
}

// MustIdentity returns the identity RequireAuth attached. Calling it from a
// route that is not behind RequireAuth is a programming error.
func MustIdentity(c *gin.Context) Identity {
	value, exists := c.Get(identityContextKey)
	if !exists {
		panic("identity requested outside an authenticated route")
	}
	return value.(Identity)
}
