package db

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"audiostory-backend-go/internal/models"
)

const (
	categoriesCollection = "categories"
	episodesCollection   = "episodes"
)

type firestoreCatalogRepository struct {
	client *firestore.Client
}

// NewFirestoreCatalogRepository creates a CatalogRepository backed by the
// "categories" and "episodes" collections.
func NewFirestoreCatalogRepository(client *firestore.Client) CatalogRepository {
	if client == nil {
		panic("Firestore client is not initialized for CatalogRepository")
	}
	return &firestoreCatalogRepository{client: client}
}

func (r *firestoreCatalogRepository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	iter := r.client.Collection(categoriesCollection).OrderBy("position", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	categories := make([]*models.Category, 0)
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate categories: %w", err)
		}
		var category models.Category
		if err := docSnap.DataTo(&category); err != nil {
			return nil, fmt.Errorf("failed to decode category '%s': %w", docSnap.Ref.ID, err)
		}
		category.ID = docSnap.Ref.ID
		categories = append(categories, &category)
	}
	return categories, nil
}

func (r *firestoreCatalogRepository) ListEpisodes(ctx context.Context, storyID string) ([]*models.Episode, error) {
	iter := r.client.Collection(episodesCollection).
		Where("storyId", "==", storyID).
		OrderBy("episodeNumber", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	episodes := make([]*models.Episode, 0)
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate episodes for story '%s': %w", storyID, err)
		}
		var episode models.Episode
		if err := docSnap.DataTo(&episode); err != nil {
			return nil, fmt.Errorf("failed to decode episode '%s': %w", docSnap.Ref.ID, err)
		}
		episode.ID = docSnap.Ref.ID
		episodes = append(episodes, &episode)
	}
	return episodes, nil
}
