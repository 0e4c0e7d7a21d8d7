package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"audiostory-backend-go/internal/core"
	"audiostory-backend-go/internal/middleware"
	"audiostory-backend-go/internal/models"
)

// AuthHandler handles sign-in bookkeeping.
type AuthHandler struct {
	userService core.UserService
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(us core.UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{userService: us, logger: logger}
}

// InitializeUserProfile handles POST /users/initialize. The client calls it
// after every sign-in; the first call creates the profile.
func (h *AuthHandler) InitializeUserProfile(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	profile, created, err := h.userService.EnsureProfile(c.Request.Context(), *identity)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, InitializeUserResponse{Created: created, Profile: profile})
}

// requireIdentity returns the verified caller or writes a 401.
func requireIdentity(c *gin.Context) (*models.Identity, bool) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return nil, false
	}
	return identity, true
}
