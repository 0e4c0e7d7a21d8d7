package models

import (
	"sort"
	"strings"
	"time"
)

// Story is a single audio story in the catalog.
type Story struct {
	ID              string    `json:"id" firestore:"-"`
	Title           string    `json:"title" firestore:"title"`
	Author          string    `json:"author" firestore:"author"`
	Description     string    `json:"description" firestore:"description"`
	CoverImageURL   string    `json:"coverImageUrl" firestore:"coverImageUrl"`
	AudioURL        string    `json:"audioUrl,omitempty" firestore:"audioUrl"`
	Tags            []string  `json:"tags" firestore:"tags"`
	IsPremium       bool      `json:"isPremium" firestore:"isPremium"`
	DurationMinutes int       `json:"durationMinutes" firestore:"durationMinutes"`
	CreatedAt       time.Time `json:"createdAt,omitempty" firestore:"createdAt"`
}

// StoryView is a story as shown to a particular caller. Locked stories have
// their audio stripped.
type StoryView struct {
	*Story
	Locked bool `json:"locked"`
}

// ViewFor returns the story as seen by a caller with or without premium access.
func (s *Story) ViewFor(premium bool) StoryView {
	if !s.IsPremium || premium {
		return StoryView{Story: s}
	}
	locked := *s
	locked.AudioURL = ""
	return StoryView{Story: &locked, Locked: true}
}

// NormalizeTags trims surrounding space, drops empty and repeated tags and
// sorts the rest. Case is kept, so "Noir" and "noir" are distinct tags.
// The result is never nil.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// StoryInput is the payload for creating a story.
type StoryInput struct {
	Title           string   `json:"title" binding:"required"`
	Author          string   `json:"author" binding:"required"`
	Description     string   `json:"description"`
	CoverImageURL   string   `json:"coverImageUrl"`
	AudioURL        string   `json:"audioUrl" binding:"required"`
	Tags            []string `json:"tags"`
	IsPremium       bool     `json:"isPremium"`
	DurationMinutes int      `json:"durationMinutes" binding:"gte=0"`
}

// StoryPatch is a partial story update. Nil fields are left untouched.
type StoryPatch struct {
	Title           *string   `json:"title,omitempty"`
	Author          *string   `json:"author,omitempty"`
	Description     *string   `json:"description,omitempty"`
	CoverImageURL   *string   `json:"coverImageUrl,omitempty"`
	AudioURL        *string   `json:"audioUrl,omitempty"`
	Tags            *[]string `json:"tags,omitempty"`
	IsPremium       *bool     `json:"isPremium,omitempty"`
	DurationMinutes *int      `json:"durationMinutes,omitempty" binding:"omitempty,gte=0"`
}

// IsEmpty reports whether the patch would not change any field.
func (p StoryPatch) IsEmpty() bool {
	return p.Title == nil && p.Author == nil && p.Description == nil && p.CoverImageURL == nil &&
		p.AudioURL == nil && p.Tags == nil && p.IsPremium == nil && p.DurationMinutes == nil
}
