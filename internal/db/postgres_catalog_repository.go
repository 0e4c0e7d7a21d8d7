package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"audiostory-backend-go/internal/models"
)

type postgresCatalogRepository struct {
	pool *pgxpool.Pool
}

// ListCategories returns categories by position with their story ids in
// link order.
func (r *postgresCatalogRepository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	query := `
		SELECT c.id, c.title, c.description, c.position,
		       COALESCE(ARRAY_AGG(cs.story_id ORDER BY cs.position) FILTER (WHERE cs.story_id IS NOT NULL), '{}')
		FROM categories c
		LEFT JOIN category_stories cs ON cs.category_id = c.id
		GROUP BY c.id
		ORDER BY c.position, c.id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	categories := make([]*models.Category, 0)
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Position, &c.StoryIDs); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}
	return categories, nil
}

// ListEpisodes returns a story's episodes in order.
func (r *postgresCatalogRepository) ListEpisodes(ctx context.Context, storyID string) ([]*models.Episode, error) {
	query := `
		SELECT id, story_id, title, duration, listens, is_premium, episode_number, audio_url
		FROM episodes
		WHERE story_id = $1
		ORDER BY episode_number, id
	`
	rows, err := r.pool.Query(ctx, query, storyID)
	if err != nil {
		return nil, fmt.Errorf("querying episodes: %w", err)
	}
	defer rows.Close()

	episodes := make([]*models.Episode, 0)
	for rows.Next() {
		var e models.Episode
		if err := rows.Scan(&e.ID, &e.StoryID, &e.Title, &e.Duration, &e.Listens, &e.IsPremium, &e.EpisodeNumber, &e.AudioURL); err != nil {
			return nil, fmt.Errorf("scanning episode: %w", err)
		}
		episodes = append(episodes, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating episodes: %w", err)
	}
	return episodes, nil
}
