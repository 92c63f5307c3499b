package middleware

import (
	"strings"

	"github.com/dododo1295/notetree/model"
	"github.com/dododo1295/notetree/services"
	"github.com/dododo1295/notetree/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// UserIDKey holds the verified owner id in the gin context.
	UserIDKey = "user_id"
	// TokenKey holds the raw bearer token, used by logout.
	TokenKey = "token"
)

// AuthMiddleware rejects requests without a valid bearer token before any
// handler runs and stores the caller's user id under UserIDKey.
func AuthMiddleware(verifier services.IdentityVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get the token from the header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			utils.TrackAuthAttempt("failure", "missing")
			utils.Unauthorized(c, "Missing or invalid token")
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		userID, err := verifier.Verify(c.Request.Context(), tokenString)
		if err != nil {
			if model.IsTransient(err) {
				utils.Logger.Error("token verification unavailable", zap.Error(err))
				utils.ServiceUnavailable(c, "Authentication temporarily unavailable")
				return
			}
			utils.Unauthorized(c, "Invalid token")
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(TokenKey, tokenString)
		c.Next()
	}
}

// UserID returns the id stored by AuthMiddleware.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
