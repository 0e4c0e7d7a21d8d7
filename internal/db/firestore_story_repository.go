package db

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"audiostory-backend-go/internal/models"
)

const storiesCollection = "stories"

// firestoreStoryRepository implements StoryRepository using Firestore.
type firestoreStoryRepository struct {
	client *firestore.Client
}

// NewFirestoreStoryRepository creates a new instance of firestoreStoryRepository.
func NewFirestoreStoryRepository(client *firestore.Client) StoryRepository {
	if client == nil {
		panic("Firestore client is not initialized for StoryRepository")
	}
	return &firestoreStoryRepository{client: client}
}

// List returns stories ordered by title. The free-only query needs a
// composite index on (isPremium, title).
func (r *firestoreStoryRepository) List(ctx context.Context, includePremium bool) ([]*models.Story, error) {
	query := r.client.Collection(storiesCollection).Query
	if !includePremium {
		query = query.Where("isPremium", "==", false)
	}
	iter := query.OrderBy("title", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	stories := make([]*models.Story, 0)
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate stories: %w", err)
		}
		story, err := decodeStory(docSnap)
		if err != nil {
			return nil, err
		}
		stories = append(stories, story)
	}
	return stories, nil
}

// GetByID retrieves a story document by its ID.
func (r *firestoreStoryRepository) GetByID(ctx context.Context, storyID string) (*models.Story, error) {
	docSnap, err := r.client.Collection(storiesCollection).Doc(storyID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("story with ID '%s': %w", storyID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get story with ID '%s': %w", storyID, err)
	}
	return decodeStory(docSnap)
}

// Create adds a new story document with an auto-generated ID and sets
// story.ID before writing.
func (r *firestoreStoryRepository) Create(ctx context.Context, story *models.Story) (string, error) {
	docRef := r.client.Collection(storiesCollection).NewDoc()
	story.ID = docRef.ID

	if _, err := docRef.Create(ctx, story); err != nil {
		return "", fmt.Errorf("failed to create story: %w", err)
	}
	return docRef.ID, nil
}

// Update writes the non-nil fields of patch.
func (r *firestoreStoryRepository) Update(ctx context.Context, storyID string, patch models.StoryPatch) error {
	var updates []firestore.Update
	add := func(path string, value interface{}) {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Author != nil {
		add("author", *patch.Author)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.CoverImageURL != nil {
		add("coverImageUrl", *patch.CoverImageURL)
	}
	if patch.AudioURL != nil {
		add("audioUrl", *patch.AudioURL)
	}
	if patch.Tags != nil {
		add("tags", *patch.Tags)
	}
	if patch.IsPremium != nil {
		add("isPremium", *patch.IsPremium)
	}
	if patch.DurationMinutes != nil {
		add("durationMinutes", *patch.DurationMinutes)
	}
	if len(updates) == 0 {
		return nil
	}

	if _, err := r.client.Collection(storiesCollection).Doc(storyID).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("story with ID '%s': %w", storyID, ErrNotFound)
		}
		return fmt.Errorf("failed to update story with ID '%s': %w", storyID, err)
	}
	return nil
}

// Delete removes a story document.
func (r *firestoreStoryRepository) Delete(ctx context.Context, storyID string) error {
	if _, err := r.client.Collection(storiesCollection).Doc(storyID).Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("story with ID '%s': %w", storyID, ErrNotFound)
		}
		return fmt.Errorf("failed to delete story with ID '%s': %w", storyID, err)
	}
	return nil
}

func decodeStory(docSnap *firestore.DocumentSnapshot) (*models.Story, error) {
	var story models.Story
	if err := docSnap.DataTo(&story); err != nil {
		return nil, fmt.Errorf("failed to decode story data for ID '%s': %w", docSnap.Ref.ID, err)
	}
	story.ID = docSnap.Ref.ID
	if story.Tags == nil {
		story.Tags = []string{}
	}
	return &story, nil
}
