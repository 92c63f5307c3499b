package handler

import (
	"github.com/dododo1295/notetree/middleware"
	"github.com/dododo1295/notetree/services"
	"github.com/dododo1295/notetree/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LogoutHandler revokes the bearer token that authenticated the request.
func LogoutHandler(c *gin.Context, verifier services.IdentityVerifier) {
	token := c.GetString(middleware.TokenKey)
	if token == "" {
		utils.Unauthorized(c, "Missing or invalid token")
		return
	}

	if err := verifier.Revoke(c.Request.Context(), token); err != nil {
		utils.Logger.Error("failed to revoke token", zap.String("user_id", middleware.UserID(c)), zap.Error(err))
		utils.InternalError(c, "Failed to logout")
		return
	}

	utils.Logger.Info("user logged out", zap.String("user_id", middleware.UserID(c)))
	utils.NoContent(c)
}
