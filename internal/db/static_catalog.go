package db

import (
	"context"
	"fmt"
	"sort"

	"audiostory-backend-go/internal/models"
)

// StaticCatalog is the built-in catalog served when no backend is configured.
// It satisfies StoryRepository and CatalogRepository; writes fail with
// ErrReadOnly. Results are copies, so callers may modify them freely.
type StaticCatalog struct {
	stories    []models.Story
	categories []models.Category
	episodes   []models.Episode
}

// NewStaticCatalog returns the fallback catalog.
func NewStaticCatalog() *StaticCatalog {
	return &StaticCatalog{
		stories:    fallbackStories(),
		categories: fallbackCategories(),
		episodes:   fallbackEpisodes(),
	}
}

func (c *StaticCatalog) List(_ context.Context, includePremium bool) ([]*models.Story, error) {
	stories := make([]*models.Story, 0, len(c.stories))
	for i := range c.stories {
		if c.stories[i].IsPremium && !includePremium {
			continue
		}
		stories = append(stories, copyStory(c.stories[i]))
	}
	sort.SliceStable(stories, func(i, j int) bool { return stories[i].Title < stories[j].Title })
	return stories, nil
}

func (c *StaticCatalog) GetByID(_ context.Context, storyID string) (*models.Story, error) {
	for i := range c.stories {
		if c.stories[i].ID == storyID {
			return copyStory(c.stories[i]), nil
		}
	}
	return nil, fmt.Errorf("story with ID '%s': %w", storyID, ErrNotFound)
}

func (c *StaticCatalog) Create(context.Context, *models.Story) (string, error) {
	return "", ErrReadOnly
}

func (c *StaticCatalog) Update(context.Context, string, models.StoryPatch) error {
	return ErrReadOnly
}

func (c *StaticCatalog) Delete(context.Context, string) error {
	return ErrReadOnly
}

func (c *StaticCatalog) ListCategories(context.Context) ([]*models.Category, error) {
	categories := make([]*models.Category, 0, len(c.categories))
	for i := range c.categories {
		category := c.categories[i]
		category.StoryIDs = append([]string(nil), category.StoryIDs...)
		categories = append(categories, &category)
	}
	return categories, nil
}

func (c *StaticCatalog) ListEpisodes(_ context.Context, storyID string) ([]*models.Episode, error) {
	episodes := make([]*models.Episode, 0)
	for i := range c.episodes {
		if c.episodes[i].StoryID == storyID {
			episode := c.episodes[i]
			episodes = append(episodes, &episode)
		}
	}
	sort.SliceStable(episodes, func(i, j int) bool { return episodes[i].EpisodeNumber < episodes[j].EpisodeNumber })
	return episodes, nil
}

func copyStory(s models.Story) *models.Story {
	s.Tags = append([]string{}, s.Tags...)
	return &s
}

func fallbackStories() []models.Story {
	cover := func(photo string) string {
		return "https://images.unsplash.com/" + photo + "?auto=format&fit=crop&w=800&q=80"
	}
	return []models.Story{
		{
			ID:     "forbidden-desire",
			Title:  "Forbidden Desire: One Year To Love",
			Author: "Amelia Hayes",
			Description: "With one year left to live, Abigail pursues cold-hearted billionaire Quentin Blackwood, " +
				"determined to experience love before she dies. As she enters his dangerous world, Abigail must " +
				"navigate growing passion and protect her heart while the clock ticks down on her life.",
			CoverImageURL:   cover("photo-1517849845537-4d257902454a"),
			AudioURL:        "#",
			Tags:            []string{"drama", "romance"},
			IsPremium:       true,
			DurationMinutes: 32,
		},
		{
			ID:              "handsome-bodyguard",
			Title:           "My Handsome Bodyguard",
			Author:          "Lucas Grant",
			Description:     "A determined CEO hires a mysterious bodyguard who hides a past that could shatter their worlds.",
			CoverImageURL:   cover("photo-1493711662062-fa541adb3fc8"),
			AudioURL:        "#",
			Tags:            []string{"romance", "thriller"},
			IsPremium:       true,
			DurationMinutes: 29,
		},
		{
			ID:              "memory-hack",
			Title:           "Memory Hack",
			Author:          "Zoe Walters",
			Description:     "An investigative journalist discovers an underground clinic that lets clients rewrite the past.",
			CoverImageURL:   cover("photo-1525182008055-f88b95ff7980"),
			AudioURL:        "#",
			Tags:            []string{"mystery", "sci-fi"},
			DurationMinutes: 24,
		},
		{
			ID:              "secrets-of-serenity",
			Title:           "Secrets of Serenity Brook",
			Author:          "Evelyn Cho",
			Description:     "Two rival families in a quiet seaside town unravel a long-buried conspiracy.",
			CoverImageURL:   cover("photo-1500530855697-b586d89ba3ee"),
			AudioURL:        "#",
			Tags:            []string{"mystery"},
			DurationMinutes: 26,
		},
		{
			ID:              "alpha-heir",
			Title:           "Alpha Heir",
			Author:          "Jace Sinclair",
			Description:     "A runaway shifter princess returns to claim her throne and the mate she left behind.",
			CoverImageURL:   cover("photo-1521579971123-1192931a1452"),
			AudioURL:        "#",
			Tags:            []string{"fantasy"},
			IsPremium:       true,
			DurationMinutes: 31,
		},
		{
			ID:              "love-in-the-storm",
			Title:           "Love in the Storm",
			Author:          "Isabella Reed",
			Description:     "Stranded during a typhoon, two enemies must rely on each other to make it out alive.",
			CoverImageURL:   cover("photo-1525181261060-3a983f9d1781"),
			AudioURL:        "#",
			Tags:            []string{"adventure", "romance"},
			DurationMinutes: 27,
		},
	}
}

func fallbackCategories() []models.Category {
	return []models.Category{
		{
			ID:       "dangerous-attractions",
			Title:    "Dangerous Attractions",
			StoryIDs: []string{"handsome-bodyguard", "forbidden-desire", "alpha-heir", "love-in-the-storm"},
			Position: 0,
		},
		{
			ID:       "unlock-your-mind",
			Title:    "Unlock Your Mind Today",
			StoryIDs: []string{"memory-hack", "secrets-of-serenity", "love-in-the-storm"},
			Position: 1,
		},
		{
			ID:       "dark-obsessions",
			Title:    "Dark Obsessions",
			StoryIDs: []string{"forbidden-desire", "handsome-bodyguard", "alpha-heir"},
			Position: 2,
		},
		{
			ID:       "new-releases",
			Title:    "New Releases",
			StoryIDs: []string{"memory-hack", "alpha-heir", "secrets-of-serenity"},
			Position: 3,
		},
	}
}

func fallbackEpisodes() []models.Episode {
	return []models.Episode{
		{ID: "ep1", StoryID: "forbidden-desire", Title: "Episode 1 - Listening Now", Duration: "10 min 26 sec", Listens: "6K+", EpisodeNumber: 1},
		{ID: "ep2", StoryID: "forbidden-desire", Title: "Episode 2 - Collision Course", Duration: "9 min 44 sec", Listens: "5K+", EpisodeNumber: 2},
		{ID: "ep3", StoryID: "forbidden-desire", Title: "Episode 3 - Shattered Promises", Duration: "8 min 12 sec", Listens: "3K+", EpisodeNumber: 3},
		{ID: "ep4", StoryID: "forbidden-desire", Title: "Episode 4 - The Deal", Duration: "7 min 48 sec", Listens: "2K+", EpisodeNumber: 4},
		{ID: "ep5", StoryID: "forbidden-desire", Title: "Episode 5 - Midnight Confessions", Duration: "7 min 32 sec", Listens: "1.5K+", IsPremium: true, EpisodeNumber: 5},
	}
}
