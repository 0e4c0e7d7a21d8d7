package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminOnly allows only the caller whose email equals adminEmail and has been
// verified by the identity provider. It must run after VerifyToken. With no
// admin email configured every request is forbidden.
func AdminOnly(adminEmail string, logger *zap.Logger) gin.HandlerFunc {
	adminEmail = strings.TrimSpace(adminEmail)
	if adminEmail == "" {
		logger.Warn("ADMIN_EMAIL is not set; admin routes will reject every request")
	}
	return func(c *gin.Context) {
		identity, ok := IdentityFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
			return
		}
		if adminEmail == "" || !identity.EmailVerified || !strings.EqualFold(strings.TrimSpace(identity.Email), adminEmail) {
			logger.Warn("Admin access denied",
				zap.String("userID", identity.UserID), zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "Admin access required"})
			return
		}
		c.Next()
	}
}
