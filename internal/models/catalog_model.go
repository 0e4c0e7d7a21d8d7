package models

// Category groups stories for browsing.
type Category struct {
	ID          string   `json:"id" firestore:"-"`
	Title       string   `json:"title" firestore:"title"`
	Description string   `json:"description" firestore:"description"`
	StoryIDs    []string `json:"storyIds" firestore:"storyIds"`
	Position    int      `json:"position" firestore:"position"`
}

// CategoryView is a category with its stories resolved for one caller.
type CategoryView struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Stories     []StoryView `json:"stories"`
}

// Episode is one chapter of a multi-part story.
type Episode struct {
	ID            string `json:"id" firestore:"-"`
	StoryID       string `json:"storyId" firestore:"storyId"`
	Title         string `json:"title" firestore:"title"`
	Duration      string `json:"duration" firestore:"duration"`
	Listens       string `json:"listens" firestore:"listens"`
	IsPremium     bool   `json:"isPremium" firestore:"isPremium"`
	EpisodeNumber int    `json:"episodeNumber" firestore:"episodeNumber"`
	AudioURL      string `json:"audioUrl,omitempty" firestore:"audioUrl"`
	Locked        bool   `json:"locked" firestore:"-"`
}

// ViewFor returns the episode as seen by a caller with or without premium access.
func (e Episode) ViewFor(premium bool) Episode {
	if e.IsPremium && !premium {
		e.AudioURL = ""
		e.Locked = true
	}
	return e
}
