package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"audiostory-backend-go/internal/core"
	"audiostory-backend-go/internal/models"
)

// UserHandler serves the caller's own profile.
type UserHandler struct {
	userService core.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(us core.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{userService: us, logger: logger}
}

// GetCurrentUserProfile handles GET /users/me.
func (h *UserHandler) GetCurrentUserProfile(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	profile, err := h.userService.GetByID(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateCurrentUserProfile handles PATCH /users/me. Only the display name and
// photo can be changed here; tier and payment fields are not writable.
func (h *UserHandler) UpdateCurrentUserProfile(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	profile, err := h.userService.UpdateProfile(c.Request.Context(), identity.UserID, models.ProfileUpdate{
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// AddFavorite handles PUT /users/me/favorites/:storyId.
func (h *UserHandler) AddFavorite(c *gin.Context) {
	h.setFavorite(c, true)
}

// RemoveFavorite handles DELETE /users/me/favorites/:storyId.
func (h *UserHandler) RemoveFavorite(c *gin.Context) {
	h.setFavorite(c, false)
}

func (h *UserHandler) setFavorite(c *gin.Context, favorite bool) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	profile, err := h.userService.ToggleFavorite(c.Request.Context(), identity.UserID, c.Param("storyId"), favorite)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// RecordProgress handles PUT /users/me/progress/:storyId.
func (h *UserHandler) RecordProgress(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	profile, err := h.userService.RecordProgress(c.Request.Context(), identity.UserID, c.Param("storyId"), *req.PositionSeconds)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
