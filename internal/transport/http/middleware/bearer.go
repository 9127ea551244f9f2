package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"edskill-hub/internal/identity"
	"edskill-hub/internal/transport/http/response"
)

const (
	ContextUserIDKey = "user_id"
	ContextEmailKey  = "email"
)

// RequireBearer rejects requests without an Authorization header and
// resolves the bearer token through verifier.
func RequireBearer(verifier identity.Verifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, "Authorization required")
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		caller, err := verifier.Verify(c.Request.Context(), token)
		if err != nil || caller == nil || caller.UserID == "" {
			logger.Debug("token rejected", zap.Error(err))
			response.Error(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		c.Set(ContextUserIDKey, caller.UserID)
		c.Set(ContextEmailKey, caller.Email)
		c.Next()
	}
}

func UserID(c *gin.Context) (string, bool) {
	userID := c.GetString(ContextUserIDKey)
	return userID, userID != ""
}
