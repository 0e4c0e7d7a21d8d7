package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"audiostory-backend-go/internal/core"
	"audiostory-backend-go/internal/models"
)

// AdminHandler serves story management and user administration. Every route
// runs behind VerifyToken and AdminOnly.
type AdminHandler struct {
	stories core.StoryService
	users   core.UserService
	logger  *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(ss core.StoryService, us core.UserService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{stories: ss, users: us, logger: logger}
}

// ListStories handles GET /admin/stories.
func (h *AdminHandler) ListStories(c *gin.Context) {
	stories, err := h.stories.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if stories == nil {
		stories = []*models.Story{}
	}
	c.JSON(http.StatusOK, AdminStoriesResponse{Stories: stories})
}

// CreateStory handles POST /admin/stories.
func (h *AdminHandler) CreateStory(c *gin.Context) {
	var input models.StoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	id, err := h.stories.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, CreateStoryResponse{ID: id})
}

// GetStory handles GET /admin/stories/:id. Admins always see the audio URL.
func (h *AdminHandler) GetStory(c *gin.Context) {
	story, err := h.stories.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, AdminStoryResponse{Story: story})
}

// UpdateStory handles PUT /admin/stories/:id with a partial body.
func (h *AdminHandler) UpdateStory(c *gin.Context) {
	var patch models.StoryPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.stories.Update(c.Request.Context(), c.Param("id"), patch); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// DeleteStory handles DELETE /admin/stories/:id.
func (h *AdminHandler) DeleteStory(c *gin.Context) {
	if err := h.stories.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListProfiles(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if users == nil {
		users = []*models.UserProfile{}
	}
	c.JSON(http.StatusOK, AdminUsersResponse{Users: users})
}

// SetUserTier handles PATCH /admin/users.
func (h *AdminHandler) SetUserTier(c *gin.Context) {
	var req SetTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if req.UID == "" || req.SubscriptionTier == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "Missing uid or subscriptionTier"})
			return
		}
		badRequest(c, err)
		return
	}
	if err := h.users.SetTier(c.Request.Context(), req.UID, models.Tier(req.SubscriptionTier), req.IsAdmin); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// DeleteUser handles DELETE /admin/users. Both the profile and the identity
// provider account are removed.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	var req DeleteUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "Missing uid"})
		return
	}
	if err := h.users.DeleteUser(c.Request.Context(), req.UID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}
