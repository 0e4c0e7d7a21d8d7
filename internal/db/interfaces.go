package db

import (
	"context"
	"errors"

	"audiostory-backend-go/internal/models"
)

var (
	// ErrNotFound is returned when a document or row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned by Create when the id is taken.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrReadOnly is returned by stores that do not accept writes.
	ErrReadOnly = errors.New("store is read-only")
)

// ProfileRepository defines the interface for user profile storage.
type ProfileRepository interface {
	GetByID(ctx context.Context, userID string) (*models.UserProfile, error)
	// Create inserts a new profile and fails with ErrAlreadyExists when one is
	// already stored under the same id.
	Create(ctx context.Context, profile *models.UserProfile) error
	// Update merges the non-nil fields of update into the stored profile.
	Update(ctx context.Context, userID string, update models.ProfileUpdate) error
	// UpdateSubscription loads the subscription fields, applies mutate and
	// writes them back atomically if they changed. It reports whether a write
	// happened.
	UpdateSubscription(ctx context.Context, userID string, mutate func(*models.SubscriptionState)) (bool, error)
	// FindByCustomerID returns at most limit profiles linked to customerID.
	FindByCustomerID(ctx context.Context, customerID string, limit int) ([]*models.UserProfile, error)
	// List returns all profiles, newest first.
	List(ctx context.Context) ([]*models.UserProfile, error)
	Delete(ctx context.Context, userID string) error
}

// StoryRepository defines the interface for story storage.
type StoryRepository interface {
	// List returns stories ordered by title. Premium stories are omitted
	// unless includePremium is set.
	List(ctx context.Context, includePremium bool) ([]*models.Story, error)
	GetByID(ctx context.Context, storyID string) (*models.Story, error)
	Create(ctx context.Context, story *models.Story) (string, error)
	Update(ctx context.Context, storyID string, patch models.StoryPatch) error
	Delete(ctx context.Context, storyID string) error
}

// CatalogRepository defines read access to browsing metadata.
type CatalogRepository interface {
	ListCategories(ctx context.Context) ([]*models.Category, error)
	ListEpisodes(ctx context.Context, storyID string) ([]*models.Episode, error)
}
