package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"audiostory-backend-go/internal/models"
)

const uniqueViolation = "23505"

const profileColumns = `
	id, email, display_name, photo_url, subscription_tier, favorite_story_ids, progress,
	COALESCE(stripe_customer_id, ''), COALESCE(stripe_subscription_id, ''),
	canceled_subscription_ids, premium_since, is_admin, created_at, updated_at`

// postgresProfileRepository handles profile rows in Postgres.
type postgresProfileRepository struct {
	pool *pgxpool.Pool
}

// Create inserts a new profile.
func (r *postgresProfileRepository) Create(ctx context.Context, profile *models.UserProfile) error {
	query := `
		INSERT INTO profiles (
			id, email, display_name, photo_url, subscription_tier, favorite_story_ids, progress,
			stripe_customer_id, is_admin, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		profile.ID,
		profile.Email,
		profile.DisplayName,
		profile.PhotoURL,
		string(profile.SubscriptionTier),
		nonNilStrings(profile.FavoriteStoryIDs),
		nonNilProgress(profile.Progress),
		nullIfEmpty(profile.StripeCustomerID),
		profile.IsAdmin,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("profile with ID '%s': %w", profile.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("inserting profile: %w", err)
	}
	return nil
}

// GetByID retrieves a profile by ID.
func (r *postgresProfileRepository) GetByID(ctx context.Context, userID string) (*models.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	profile, err := scanProfile(r.pool.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("profile with ID '%s': %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile: %w", err)
	}
	return profile, nil
}

// Update sets only the columns present in update.
func (r *postgresProfileRepository) Update(ctx context.Context, userID string, update models.ProfileUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	sets := make([]string, 0, 8)
	args := []any{userID}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.DisplayName != nil {
		set("display_name", *update.DisplayName)
	}
	if update.PhotoURL != nil {
		set("photo_url", *update.PhotoURL)
	}
	if update.SubscriptionTier != nil {
		set("subscription_tier", string(*update.SubscriptionTier))
	}
	if update.FavoriteStoryIDs != nil {
		set("favorite_story_ids", nonNilStrings(*update.FavoriteStoryIDs))
	}
	if update.Progress != nil {
		set("progress", nonNilProgress(*update.Progress))
	}
	if update.StripeCustomerID != nil {
		set("stripe_customer_id", nullIfEmpty(*update.StripeCustomerID))
	}
	if update.IsAdmin != nil {
		set("is_admin", *update.IsAdmin)
	}
	sets = append(sets, "updated_at = NOW()")

	query := `UPDATE profiles SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("profile with ID '%s': %w", userID, ErrNotFound)
	}
	return nil
}

// UpdateSubscription locks the row, applies mutate and writes the
// subscription columns back in the same transaction.
func (r *postgresProfileRepository) UpdateSubscription(ctx context.Context, userID string, mutate func(*models.SubscriptionState)) (bool, error) {
	var changed bool
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var state models.SubscriptionState
		var tier string
		err := tx.QueryRow(ctx, `
			SELECT subscription_tier, COALESCE(stripe_customer_id, ''), COALESCE(stripe_subscription_id, ''),
			       canceled_subscription_ids, premium_since
			FROM profiles
			WHERE id = $1
			FOR UPDATE
		`, userID).Scan(&tier, &state.CustomerID, &state.SubscriptionID, &state.CanceledSubscriptionIDs, &state.PremiumSince)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("locking profile: %w", err)
		}
		state.Tier = models.Tier(tier)

		before := state
		mutate(&state)
		if state.Equal(before) {
			return nil
		}
		changed = true

		_, err = tx.Exec(ctx, `
			UPDATE profiles SET
				subscription_tier = $2,
				stripe_customer_id = $3,
				stripe_subscription_id = $4,
				canceled_subscription_ids = $5,
				premium_since = $6,
				updated_at = NOW()
			WHERE id = $1
		`, userID,
			string(state.Tier),
			nullIfEmpty(state.CustomerID),
			nullIfEmpty(state.SubscriptionID),
			nonNilStrings(state.CanceledSubscriptionIDs),
			state.PremiumSince,
		)
		if err != nil {
			return fmt.Errorf("writing subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, fmt.Errorf("profile with ID '%s': %w", userID, ErrNotFound)
		}
		return false, err
	}
	return changed, nil
}

// FindByCustomerID returns at most limit profiles linked to customerID.
func (r *postgresProfileRepository) FindByCustomerID(ctx context.Context, customerID string, limit int) ([]*models.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE stripe_customer_id = $1 ORDER BY created_at LIMIT $2`
	return r.queryProfiles(ctx, query, customerID, limit)
}

// List returns all profiles, newest first.
func (r *postgresProfileRepository) List(ctx context.Context) ([]*models.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles ORDER BY created_at DESC`
	return r.queryProfiles(ctx, query)
}

// Delete removes a profile.
func (r *postgresProfileRepository) Delete(ctx context.Context, userID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("profile with ID '%s': %w", userID, ErrNotFound)
	}
	return nil
}

func (r *postgresProfileRepository) queryProfiles(ctx context.Context, query string, args ...any) ([]*models.UserProfile, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]*models.UserProfile, 0)
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating profiles: %w", err)
	}
	return profiles, nil
}

func scanProfile(row pgx.Row) (*models.UserProfile, error) {
	var p models.UserProfile
	var tier string
	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.DisplayName,
		&p.PhotoURL,
		&tier,
		&p.FavoriteStoryIDs,
		&p.Progress,
		&p.StripeCustomerID,
		&p.StripeSubscriptionID,
		&p.CanceledSubscriptionIDs,
		&p.PremiumSince,
		&p.IsAdmin,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.SubscriptionTier = models.Tier(tier)
	p.FavoriteStoryIDs = nonNilStrings(p.FavoriteStoryIDs)
	p.Progress = nonNilProgress(p.Progress)
	return &p, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilProgress(p []models.ListeningProgress) []models.ListeningProgress {
	if p == nil {
		return []models.ListeningProgress{}
	}
	return p
}
