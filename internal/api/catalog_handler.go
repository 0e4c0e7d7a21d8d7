package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"audiostory-backend-go/internal/core"
	"audiostory-backend-go/internal/middleware"
)

// CatalogHandler serves the public, tier-aware catalog. Routes run behind
// OptionalAuth; anonymous callers see the free tier.
type CatalogHandler struct {
	catalog core.CatalogService
	logger  *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(cs core.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: cs, logger: logger}
}

func (h *CatalogHandler) viewerIsPremium(c *gin.Context) bool {
	identity, _ := middleware.IdentityFromContext(c)
	return h.catalog.ViewerIsPremium(c.Request.Context(), identity)
}

// ListStories handles GET /stories.
func (h *CatalogHandler) ListStories(c *gin.Context) {
	stories, err := h.catalog.ListStories(c.Request.Context(), h.viewerIsPremium(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, StoriesResponse{Stories: stories})
}

// GetStory handles GET /stories/:id.
func (h *CatalogHandler) GetStory(c *gin.Context) {
	story, err := h.catalog.GetStory(c.Request.Context(), c.Param("id"), h.viewerIsPremium(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, StoryResponse{Story: story})
}

// ListEpisodes handles GET /stories/:id/episodes.
func (h *CatalogHandler) ListEpisodes(c *gin.Context) {
	episodes, err := h.catalog.ListEpisodes(c.Request.Context(), c.Param("id"), h.viewerIsPremium(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, EpisodesResponse{Episodes: episodes})
}

// ListCategories handles GET /categories.
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context(), h.viewerIsPremium(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, CategoriesResponse{Categories: categories})
}
