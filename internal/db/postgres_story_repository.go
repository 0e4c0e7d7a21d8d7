package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"audiostory-backend-go/internal/models"
)

const storyColumns = `id, title, author, description, cover_image_url, audio_url, tags, is_premium, duration_minutes, created_at`

// postgresStoryRepository handles story rows in Postgres.
type postgresStoryRepository struct {
	pool *pgxpool.Pool
}

// List returns stories ordered by title.
func (r *postgresStoryRepository) List(ctx context.Context, includePremium bool) ([]*models.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories`
	if !includePremium {
		query += ` WHERE is_premium = FALSE`
	}
	query += ` ORDER BY title, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying stories: %w", err)
	}
	defer rows.Close()

	stories := make([]*models.Story, 0)
	for rows.Next() {
		story, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning story: %w", err)
		}
		stories = append(stories, story)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stories: %w", err)
	}
	return stories, nil
}

// GetByID retrieves a story by ID.
func (r *postgresStoryRepository) GetByID(ctx context.Context, storyID string) (*models.Story, error) {
	story, err := scanStory(r.pool.QueryRow(ctx, `SELECT `+storyColumns+` FROM stories WHERE id = $1`, storyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("story with ID '%s': %w", storyID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying story: %w", err)
	}
	return story, nil
}

// Create inserts a story under a fresh UUID and sets story.ID.
func (r *postgresStoryRepository) Create(ctx context.Context, story *models.Story) (string, error) {
	story.ID = uuid.NewString()
	query := `
		INSERT INTO stories (id, title, author, description, cover_image_url, audio_url, tags, is_premium, duration_minutes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		story.ID,
		story.Title,
		story.Author,
		story.Description,
		story.CoverImageURL,
		story.AudioURL,
		nonNilStrings(story.Tags),
		story.IsPremium,
		story.DurationMinutes,
		story.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("inserting story: %w", err)
	}
	return story.ID, nil
}

// Update sets only the columns present in patch.
func (r *postgresStoryRepository) Update(ctx context.Context, storyID string, patch models.StoryPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	sets := make([]string, 0, 8)
	args := []any{storyID}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Author != nil {
		set("author", *patch.Author)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.CoverImageURL != nil {
		set("cover_image_url", *patch.CoverImageURL)
	}
	if patch.AudioURL != nil {
		set("audio_url", *patch.AudioURL)
	}
	if patch.Tags != nil {
		set("tags", nonNilStrings(*patch.Tags))
	}
	if patch.IsPremium != nil {
		set("is_premium", *patch.IsPremium)
	}
	if patch.DurationMinutes != nil {
		set("duration_minutes", *patch.DurationMinutes)
	}

	tag, err := r.pool.Exec(ctx, `UPDATE stories SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return fmt.Errorf("updating story: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("story with ID '%s': %w", storyID, ErrNotFound)
	}
	return nil
}

// Delete removes a story. Episodes and category links cascade.
func (r *postgresStoryRepository) Delete(ctx context.Context, storyID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM stories WHERE id = $1`, storyID)
	if err != nil {
		return fmt.Errorf("deleting story: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("story with ID '%s': %w", storyID, ErrNotFound)
	}
	return nil
}

func scanStory(row pgx.Row) (*models.Story, error) {
	var s models.Story
	err := row.Scan(
		&s.ID,
		&s.Title,
		&s.Author,
		&s.Description,
		&s.CoverImageURL,
		&s.AudioURL,
		&s.Tags,
		&s.IsPremium,
		&s.DurationMinutes,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Tags = nonNilStrings(s.Tags)
	return &s, nil
}
