package models

import (
	"sort"
	"time"
)

// Tier is the subscription level of a user profile.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	return t == TierFree || t == TierPremium
}

// ListeningProgress records how far a user got into a story.
type ListeningProgress struct {
	StoryID         string    `json:"storyId" firestore:"storyId"`
	PositionSeconds float64   `json:"positionSeconds" firestore:"positionSeconds"`
	UpdatedAt       time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// UserProfile is the application-owned record for an authenticated user.
// The document/row id is the identity provider's user id.
type UserProfile struct {
	ID                      string              `json:"uid" firestore:"-"`
	Email                   string              `json:"email" firestore:"email"`
	DisplayName             string              `json:"displayName" firestore:"displayName"`
	PhotoURL                string              `json:"photoURL,omitempty" firestore:"photoURL,omitempty"`
	SubscriptionTier        Tier                `json:"subscriptionTier" firestore:"subscriptionTier"`
	FavoriteStoryIDs        []string            `json:"favoriteStoryIds" firestore:"favoriteStoryIds"`
	Progress                []ListeningProgress `json:"progress" firestore:"progress"`
	StripeCustomerID        string              `json:"stripeCustomerId,omitempty" firestore:"stripeCustomerId,omitempty"`
	StripeSubscriptionID    string              `json:"stripeSubscriptionId,omitempty" firestore:"stripeSubscriptionId,omitempty"`
	CanceledSubscriptionIDs []string            `json:"-" firestore:"canceledSubscriptionIds,omitempty"`
	PremiumSince            *time.Time          `json:"premiumSince,omitempty" firestore:"premiumSince,omitempty"`
	IsAdmin                 bool                `json:"isAdmin" firestore:"isAdmin"`
	CreatedAt               time.Time           `json:"createdAt" firestore:"createdAt"`
	UpdatedAt               time.Time           `json:"updatedAt" firestore:"updatedAt"`
}

// IsPremium reports whether the profile currently holds the premium tier.
func (p *UserProfile) IsPremium() bool {
	return p != nil && p.SubscriptionTier == TierPremium
}

// HasFavorite reports whether storyID is in the favorites list.
func (p *UserProfile) HasFavorite(storyID string) bool {
	for _, id := range p.FavoriteStoryIDs {
		if id == storyID {
			return true
		}
	}
	return false
}

// WithFavorite returns a copy of the favorites list with storyID added or removed.
// The result is never nil.
func (p *UserProfile) WithFavorite(storyID string, favorite bool) []string {
	out := make([]string, 0, len(p.FavoriteStoryIDs)+1)
	for _, id := range p.FavoriteStoryIDs {
		if id != storyID {
			out = append(out, id)
		}
	}
	if favorite {
		out = append(out, storyID)
	}
	return out
}

// WithProgress returns a copy of the progress list where the entry for storyID
// is replaced (or appended). Entries stay ordered by most recent update first.
func (p *UserProfile) WithProgress(storyID string, position float64, at time.Time) []ListeningProgress {
	out := make([]ListeningProgress, 0, len(p.Progress)+1)
	for _, entry := range p.Progress {
		if entry.StoryID != storyID {
			out = append(out, entry)
		}
	}
	out = append(out, ListeningProgress{StoryID: storyID, PositionSeconds: position, UpdatedAt: at})
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

// Subscription extracts the fields owned by the payment webhook.
func (p *UserProfile) Subscription() SubscriptionState {
	return SubscriptionState{
		Tier:                    p.SubscriptionTier,
		CustomerID:              p.StripeCustomerID,
		SubscriptionID:          p.StripeSubscriptionID,
		CanceledSubscriptionIDs: p.CanceledSubscriptionIDs,
		PremiumSince:            p.PremiumSince,
	}
}

// ProfileUpdate is a partial profile write. Nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName      *string
	PhotoURL         *string
	SubscriptionTier *Tier
	FavoriteStoryIDs *[]string
	Progress         *[]ListeningProgress
	StripeCustomerID *string
	IsAdmin          *bool
}

// IsEmpty reports whether the update would not change any field.
func (u ProfileUpdate) IsEmpty() bool {
	return u.DisplayName == nil && u.PhotoURL == nil && u.SubscriptionTier == nil &&
		u.FavoriteStoryIDs == nil && u.Progress == nil && u.StripeCustomerID == nil && u.IsAdmin == nil
}

// Identity is the verified caller as reported by the identity provider.
type Identity struct {
	UserID        string
	Email         string
	EmailVerified bool
	DisplayName   string
	PhotoURL      string
}
