package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"audiostory-backend-go/internal/db"
	"audiostory-backend-go/internal/models"
)

type storyService struct {
	stories db.StoryRepository
	logger  *zap.Logger
	now     func() time.Time
}

// NewStoryService creates the admin StoryService.
func NewStoryService(stories db.StoryRepository, logger *zap.Logger) StoryService {
	return &storyService{stories: stories, logger: logger, now: time.Now}
}

func (s *storyService) List(ctx context.Context) ([]*models.Story, error) {
	stories, err := s.stories.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	return stories, nil
}

func (s *storyService) Get(ctx context.Context, storyID string) (*models.Story, error) {
	story, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		return nil, storyNotFound(storyID, err)
	}
	return story, nil
}

func (s *storyService) Create(ctx context.Context, input models.StoryInput) (string, error) {
	story := &models.Story{
		Title:           strings.TrimSpace(input.Title),
		Author:          strings.TrimSpace(input.Author),
		Description:     input.Description,
		CoverImageURL:   strings.TrimSpace(input.CoverImageURL),
		AudioURL:        strings.TrimSpace(input.AudioURL),
		Tags:            models.NormalizeTags(input.Tags),
		IsPremium:       input.IsPremium,
		DurationMinutes: input.DurationMinutes,
		CreatedAt:       s.now().UTC(),
	}
	if story.Title == "" || story.Author == "" || story.AudioURL == "" {
		return "", fmt.Errorf("%w: title, author and audioUrl are required", ErrValidation)
	}
	if story.DurationMinutes < 0 {
		return "", fmt.Errorf("%w: durationMinutes must not be negative", ErrValidation)
	}

	id, err := s.stories.Create(ctx, story)
	if err != nil {
		return "", fmt.Errorf("failed to create story: %w", err)
	}
	s.logger.Info("Story created", zap.String("storyID", id), zap.String("title", story.Title))
	return id, nil
}

func (s *storyService) Update(ctx context.Context, storyID string, patch models.StoryPatch) error {
	if patch.IsEmpty() {
		return fmt.Errorf("%w: no fields to update", ErrValidation)
	}
	for name, field := range map[string]*string{"title": patch.Title, "author": patch.Author, "audioUrl": patch.AudioURL} {
		if field == nil {
			continue
		}
		trimmed := strings.TrimSpace(*field)
		if trimmed == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrValidation, name)
		}
		*field = trimmed
	}
	if patch.DurationMinutes != nil && *patch.DurationMinutes < 0 {
		return fmt.Errorf("%w: durationMinutes must not be negative", ErrValidation)
	}
	if patch.Tags != nil {
		tags := models.NormalizeTags(*patch.Tags)
		patch.Tags = &tags
	}

	if err := s.stories.Update(ctx, storyID, patch); err != nil {
		return storyNotFound(storyID, err)
	}
	s.logger.Info("Story updated", zap.String("storyID", storyID))
	return nil
}

func (s *storyService) Delete(ctx context.Context, storyID string) error {
	if err := s.stories.Delete(ctx, storyID); err != nil {
		return storyNotFound(storyID, err)
	}
	s.logger.Info("Story deleted", zap.String("storyID", storyID))
	return nil
}

func storyNotFound(storyID string, err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("%w: '%s'", ErrStoryNotFound, storyID)
	}
	return fmt.Errorf("story operation for '%s' failed: %w", storyID, err)
}
