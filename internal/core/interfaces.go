package core

import (
	"context"
	"errors"
	"io"

	"audiostory-backend-go/internal/models"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrStoryNotFound         = errors.New("story not found")
	ErrValidation            = errors.New("validation failed")
	ErrPriceNotConfigured    = errors.New("subscription price is not configured")
	ErrPaymentsNotConfigured = errors.New("payments are not configured")
	ErrCustomerNotLinked     = errors.New("user does not have a payment customer")
	ErrAmbiguousCustomer     = errors.New("payment customer is linked to more than one profile")
	ErrUploadTypeMismatch    = errors.New("file content does not match the upload type")
	ErrUploadTooLarge        = errors.New("file exceeds the upload size limit")
	ErrUpstream              = errors.New("upstream service failed")
)

// UserService defines profile operations for both the owner and the admin.
type UserService interface {
	// EnsureProfile returns the caller's profile, creating it on first sign-in.
	// The bool reports whether it was created by this call.
	EnsureProfile(ctx context.Context, identity models.Identity) (*models.UserProfile, bool, error)
	GetByID(ctx context.Context, userID string) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.UserProfile, error)
	ToggleFavorite(ctx context.Context, userID, storyID string, favorite bool) (*models.UserProfile, error)
	RecordProgress(ctx context.Context, userID, storyID string, positionSeconds float64) (*models.UserProfile, error)
	ListProfiles(ctx context.Context) ([]*models.UserProfile, error)
	SetTier(ctx context.Context, userID string, tier models.Tier, isAdmin *bool) error
	// DeleteUser removes the identity provider account and the profile.
	DeleteUser(ctx context.Context, userID string) error
}

// BillingService defines subscription checkout and payment event handling.
type BillingService interface {
	CreateCheckoutSession(ctx context.Context, identity models.Identity, origin string) (*models.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, identity models.Identity, origin string) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error)
}

// StoryService defines admin story management.
type StoryService interface {
	List(ctx context.Context) ([]*models.Story, error)
	Get(ctx context.Context, storyID string) (*models.Story, error)
	Create(ctx context.Context, input models.StoryInput) (string, error)
	Update(ctx context.Context, storyID string, patch models.StoryPatch) error
	Delete(ctx context.Context, storyID string) error
}

// CatalogService defines the public, tier-aware catalog.
type CatalogService interface {
	// ViewerIsPremium resolves the caller's tier. Anonymous callers and
	// callers without a profile are free.
	ViewerIsPremium(ctx context.Context, identity *models.Identity) bool
	ListStories(ctx context.Context, premium bool) ([]models.StoryView, error)
	GetStory(ctx context.Context, storyID string, premium bool) (models.StoryView, error)
	ListEpisodes(ctx context.Context, storyID string, premium bool) ([]models.Episode, error)
	ListCategories(ctx context.Context, premium bool) ([]models.CategoryView, error)
}

// UploadService defines admin media uploads.
type UploadService interface {
	Upload(ctx context.Context, input UploadInput) (*models.UploadResult, error)
}

// UploadKind is the declared purpose of an upload.
type UploadKind string

const (
	UploadCover UploadKind = "cover"
	UploadAudio UploadKind = "audio"
)

func (k UploadKind) Valid() bool {
	return k == UploadCover || k == UploadAudio
}

// UploadInput is one file received from the admin upload form.
type UploadInput struct {
	Kind     UploadKind
	Filename string
	Size     int64
	Body     io.ReadSeeker
}
