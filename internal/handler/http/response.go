package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/smartify-home/auth-service/internal/domain/errors"
)

// invalidRequestBody is the deliberately vague body returned for every
// authentication failure, so responses do not reveal whether the email,
// password, session, or token was the problem.
var invalidRequestBody = gin.H{"error": "invalid request"}

// writeServiceError maps a service-layer error onto an HTTP response.
// Unauthorized-class errors all collapse into the same vague 401.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case apperrors.IsUnauthorized(err):
		c.JSON(http.StatusUnauthorized, invalidRequestBody)
	case apperrors.IsBadRequest(err):
		c.JSON(http.StatusBadRequest, invalidRequestBody)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
