package api

import "audiostory-backend-go/internal/models"

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse acknowledges a write that returns no resource.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// --- Self-service DTOs ---

type InitializeUserResponse struct {
	Created bool                `json:"created"`
	Profile *models.UserProfile `json:"profile"`
}

type UpdateMeRequest struct {
	DisplayName *string `json:"displayName" binding:"omitempty,max=100"`
	PhotoURL    *string `json:"photoURL" binding:"omitempty,url"`
}

type ProgressRequest struct {
	PositionSeconds *float64 `json:"positionSeconds" binding:"required,gte=0"`
}

// --- Billing DTOs ---

type CheckoutSessionResponse struct {
	SessionID   string `json:"sessionId"`
	CheckoutURL string `json:"checkoutUrl"`
}

type PortalSessionResponse struct {
	URL string `json:"url"`
}

type WebhookResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
}

// --- Catalog DTOs ---

type StoriesResponse struct {
	Stories []models.StoryView `json:"stories"`
}

type StoryResponse struct {
	Story models.StoryView `json:"story"`
}

type EpisodesResponse struct {
	Episodes []models.Episode `json:"episodes"`
}

type CategoriesResponse struct {
	Categories []models.CategoryView `json:"categories"`
}

// --- Admin DTOs ---

type AdminStoriesResponse struct {
	Stories []*models.Story `json:"stories"`
}

type AdminStoryResponse struct {
	Story *models.Story `json:"story"`
}

type CreateStoryResponse struct {
	ID string `json:"id"`
}

type AdminUsersResponse struct {
	Users []*models.UserProfile `json:"users"`
}

type SetTierRequest struct {
	UID              string `json:"uid" binding:"required"`
	SubscriptionTier string `json:"subscriptionTier" binding:"required,tier"`
	IsAdmin          *bool  `json:"isAdmin"`
}

type DeleteUserRequest struct {
	UID string `json:"uid" binding:"required"`
}

type UploadRequest struct {
	Type string `form:"type" binding:"required,uploadkind"`
}
