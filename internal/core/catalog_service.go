package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"audiostory-backend-go/internal/db"
	"audiostory-backend-go/internal/models"
)

type catalogService struct {
	stories  db.StoryRepository
	catalog  db.CatalogRepository
	profiles db.ProfileRepository
	logger   *zap.Logger
}

// NewCatalogService creates the public catalog. profiles may be nil when no
// profile store is configured, in which case every caller is free.
func NewCatalogService(stories db.StoryRepository, catalog db.CatalogRepository, profiles db.ProfileRepository, logger *zap.Logger) CatalogService {
	return &catalogService{stories: stories, catalog: catalog, profiles: profiles, logger: logger}
}

func (s *catalogService) ViewerIsPremium(ctx context.Context, identity *models.Identity) bool {
	if identity == nil || s.profiles == nil {
		return false
	}
	profile, err := s.profiles.GetByID(ctx, identity.UserID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.logger.Warn("Could not resolve viewer tier, treating as free",
				zap.String("userID", identity.UserID), zap.Error(err))
		}
		return false
	}
	return profile.IsPremium()
}

func (s *catalogService) ListStories(ctx context.Context, premium bool) ([]models.StoryView, error) {
	stories, err := s.stories.List(ctx, premium)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	views := make([]models.StoryView, 0, len(stories))
	for _, story := range stories {
		views = append(views, story.ViewFor(premium))
	}
	return views, nil
}

func (s *catalogService) GetStory(ctx context.Context, storyID string, premium bool) (models.StoryView, error) {
	story, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		return models.StoryView{}, storyNotFound(storyID, err)
	}
	return story.ViewFor(premium), nil
}

// ListEpisodes locks every episode of a premium story for free callers, and
// premium episodes of free stories likewise.
func (s *catalogService) ListEpisodes(ctx context.Context, storyID string, premium bool) ([]models.Episode, error) {
	story, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		return nil, storyNotFound(storyID, err)
	}
	episodes, err := s.catalog.ListEpisodes(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes of '%s': %w", storyID, err)
	}

	lockAll := story.IsPremium && !premium
	out := make([]models.Episode, 0, len(episodes))
	for _, episode := range episodes {
		view := episode.ViewFor(premium)
		if lockAll {
			view.AudioURL = ""
			view.Locked = true
		}
		out = append(out, view)
	}
	return out, nil
}

// ListCategories resolves each category's stories in their configured
// order, leaving out stories the caller may not list.
func (s *catalogService) ListCategories(ctx context.Context, premium bool) ([]models.CategoryView, error) {
	categories, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	stories, err := s.stories.List(ctx, premium)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	byID := make(map[string]*models.Story, len(stories))
	for _, story := range stories {
		byID[story.ID] = story
	}

	views := make([]models.CategoryView, 0, len(categories))
	for _, category := range categories {
		view := models.CategoryView{
			ID:          category.ID,
			Title:       category.Title,
			Description: category.Description,
			Stories:     []models.StoryView{},
		}
		for _, id := range category.StoryIDs {
			if story, ok := byID[id]; ok {
				view.Stories = append(view.Stories, story.ViewFor(premium))
			}
		}
		views = append(views, view)
	}
	return views, nil
}
