package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"audiostory-backend-go/internal/auth"
	"audiostory-backend-go/internal/db"
	"audiostory-backend-go/internal/models"
)

// userService implements the UserService interface.
type userService struct {
	profiles db.ProfileRepository
	stories  db.StoryRepository
	identity auth.IdentityProvider
	logger   *zap.Logger
	now      func() time.Time
}

// NewUserService creates a new UserService instance.
func NewUserService(profiles db.ProfileRepository, stories db.StoryRepository, identity auth.IdentityProvider, logger *zap.Logger) UserService {
	return &userService{
		profiles: profiles,
		stories:  stories,
		identity: identity,
		logger:   logger,
		now:      time.Now,
	}
}

// EnsureProfile is safe to call concurrently for the same user: when another
// request wins the create, the stored profile is read back and returned.
func (s *userService) EnsureProfile(ctx context.Context, identity models.Identity) (*models.UserProfile, bool, error) {
	if identity.UserID == "" {
		return nil, false, fmt.Errorf("%w: identity has no user id", ErrValidation)
	}

	profile, err := s.profiles.GetByID(ctx, identity.UserID)
	if err == nil {
		return profile, false, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to get profile '%s': %w", identity.UserID, err)
	}

	now := s.now().UTC()
	profile = &models.UserProfile{
		ID:               identity.UserID,
		Email:            identity.Email,
		DisplayName:      identity.DisplayName,
		PhotoURL:         identity.PhotoURL,
		SubscriptionTier: models.TierFree,
		FavoriteStoryIDs: []string{},
		Progress:         []models.ListeningProgress{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		if !errors.Is(err, db.ErrAlreadyExists) {
			return nil, false, fmt.Errorf("failed to create profile '%s': %w", identity.UserID, err)
		}
		existing, getErr := s.profiles.GetByID(ctx, identity.UserID)
		if getErr != nil {
			return nil, false, fmt.Errorf("failed to re-read profile '%s' after concurrent create: %w", identity.UserID, getErr)
		}
		return existing, false, nil
	}

	s.logger.Info("Profile created", zap.String("userID", profile.ID))
	return profile, true, nil
}

func (s *userService) GetByID(ctx context.Context, userID string) (*models.UserProfile, error) {
	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, s.notFound(userID, err)
	}
	return profile, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.UserProfile, error) {
	if update.IsEmpty() {
		return nil, fmt.Errorf("%w: no fields to update", ErrValidation)
	}
	if update.SubscriptionTier != nil && !update.SubscriptionTier.Valid() {
		return nil, fmt.Errorf("%w: unknown subscription tier '%s'", ErrValidation, *update.SubscriptionTier)
	}
	if update.DisplayName != nil {
		trimmed := strings.TrimSpace(*update.DisplayName)
		update.DisplayName = &trimmed
	}
	if err := s.profiles.Update(ctx, userID, update); err != nil {
		return nil, s.notFound(userID, err)
	}
	return s.GetByID(ctx, userID)
}

func (s *userService) ToggleFavorite(ctx context.Context, userID, storyID string, favorite bool) (*models.UserProfile, error) {
	profile, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.HasFavorite(storyID) == favorite {
		return profile, nil
	}
	if favorite {
		if err := s.requireStory(ctx, storyID); err != nil {
			return nil, err
		}
	}
	favorites := profile.WithFavorite(storyID, favorite)
	return s.UpdateProfile(ctx, userID, models.ProfileUpdate{FavoriteStoryIDs: &favorites})
}

func (s *userService) RecordProgress(ctx context.Context, userID, storyID string, positionSeconds float64) (*models.UserProfile, error) {
	if positionSeconds < 0 {
		return nil, fmt.Errorf("%w: position must not be negative", ErrValidation)
	}
	profile, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.requireStory(ctx, storyID); err != nil {
		return nil, err
	}
	progress := profile.WithProgress(storyID, positionSeconds, s.now().UTC())
	return s.UpdateProfile(ctx, userID, models.ProfileUpdate{Progress: &progress})
}

func (s *userService) ListProfiles(ctx context.Context) ([]*models.UserProfile, error) {
	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

func (s *userService) SetTier(ctx context.Context, userID string, tier models.Tier, isAdmin *bool) error {
	if userID == "" {
		return fmt.Errorf("%w: uid is required", ErrValidation)
	}
	if !tier.Valid() {
		return fmt.Errorf("%w: subscriptionTier must be '%s' or '%s'", ErrValidation, models.TierFree, models.TierPremium)
	}
	if err := s.profiles.Update(ctx, userID, models.ProfileUpdate{SubscriptionTier: &tier, IsAdmin: isAdmin}); err != nil {
		return s.notFound(userID, err)
	}
	s.logger.Info("Subscription tier set by admin", zap.String("userID", userID), zap.String("tier", string(tier)))
	return nil
}

// DeleteUser removes the identity account first. A retry after a failed
// profile delete still finds the profile and finishes the job.
func (s *userService) DeleteUser(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: uid is required", ErrValidation)
	}
	if _, err := s.GetByID(ctx, userID); err != nil {
		return err
	}
	if s.identity != nil {
		if err := s.identity.DeleteUser(ctx, userID); err != nil {
			return fmt.Errorf("%w: deleting %s account for '%s': %v", ErrUpstream, s.identity.Name(), userID, err)
		}
	}
	if err := s.profiles.Delete(ctx, userID); err != nil {
		return s.notFound(userID, err)
	}
	s.logger.Info("User deleted", zap.String("userID", userID))
	return nil
}

func (s *userService) requireStory(ctx context.Context, storyID string) error {
	if s.stories == nil {
		return nil
	}
	if _, err := s.stories.GetByID(ctx, storyID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: '%s'", ErrStoryNotFound, storyID)
		}
		return fmt.Errorf("failed to get story '%s': %w", storyID, err)
	}
	return nil
}

func (s *userService) notFound(userID string, err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
	}
	return fmt.Errorf("profile operation for '%s' failed: %w", userID, err)
}
