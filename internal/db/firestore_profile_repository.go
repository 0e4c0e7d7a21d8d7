package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"audiostory-backend-go/internal/models"
)

const usersCollection = "users"

// firestoreProfileRepository implements ProfileRepository using Firestore.
// Documents live in the "users" collection keyed by the Firebase UID.
type firestoreProfileRepository struct {
	client *firestore.Client
}

// NewFirestoreProfileRepository creates a new instance of firestoreProfileRepository.
func NewFirestoreProfileRepository(client *firestore.Client) ProfileRepository {
	if client == nil {
		panic("Firestore client is not initialized for ProfileRepository")
	}
	return &firestoreProfileRepository{client: client}
}

func (r *firestoreProfileRepository) doc(userID string) *firestore.DocumentRef {
	return r.client.Collection(usersCollection).Doc(userID)
}

// Create adds a new profile document. The profile ID is used as the document ID.
func (r *firestoreProfileRepository) Create(ctx context.Context, profile *models.UserProfile) error {
	if profile.ID == "" {
		return errors.New("profile ID cannot be empty for Create operation")
	}
	_, err := r.doc(profile.ID).Create(ctx, profile)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("profile with ID '%s': %w", profile.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create profile with ID '%s': %w", profile.ID, err)
	}
	return nil
}

// GetByID retrieves a profile document by its ID.
func (r *firestoreProfileRepository) GetByID(ctx context.Context, userID string) (*models.UserProfile, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetByID operation")
	}
	docSnap, err := r.doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("profile with ID '%s': %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile with ID '%s': %w", userID, err)
	}
	return decodeProfile(docSnap)
}

// Update writes only the fields present in update. It does not create
// missing documents.
func (r *firestoreProfileRepository) Update(ctx context.Context, userID string, update models.ProfileUpdate) error {
	updates := profileFieldUpdates(update)
	if len(updates) == 0 {
		return nil
	}
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: firestore.ServerTimestamp})

	if _, err := r.doc(userID).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("profile with ID '%s': %w", userID, ErrNotFound)
		}
		return fmt.Errorf("failed to update profile with ID '%s': %w", userID, err)
	}
	return nil
}

// UpdateSubscription runs mutate inside a Firestore transaction so that
// concurrent webhook deliveries for the same user serialize.
func (r *firestoreProfileRepository) UpdateSubscription(ctx context.Context, userID string, mutate func(*models.SubscriptionState)) (bool, error) {
	ref := r.doc(userID)
	var changed bool

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		changed = false
		docSnap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return err
		}
		profile, err := decodeProfile(docSnap)
		if err != nil {
			return err
		}

		before := profile.Subscription()
		after := before
		mutate(&after)
		if after.Equal(before) {
			return nil
		}
		changed = true
		return tx.Update(ref, subscriptionFieldUpdates(after))
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, fmt.Errorf("profile with ID '%s': %w", userID, ErrNotFound)
		}
		return false, fmt.Errorf("failed to update subscription for profile '%s': %w", userID, err)
	}
	return changed, nil
}

// FindByCustomerID queries profiles by their payment customer id.
func (r *firestoreProfileRepository) FindByCustomerID(ctx context.Context, customerID string, limit int) ([]*models.UserProfile, error) {
	query := r.client.Collection(usersCollection).Where("stripeCustomerId", "==", customerID).Limit(limit)
	return collectProfiles(query.Documents(ctx))
}

// List returns every profile, newest first.
func (r *firestoreProfileRepository) List(ctx context.Context) ([]*models.UserProfile, error) {
	query := r.client.Collection(usersCollection).OrderBy("createdAt", firestore.Desc)
	return collectProfiles(query.Documents(ctx))
}

// Delete removes the profile document. Missing documents yield ErrNotFound.
func (r *firestoreProfileRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.doc(userID).Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("profile with ID '%s': %w", userID, ErrNotFound)
		}
		return fmt.Errorf("failed to delete profile with ID '%s': %w", userID, err)
	}
	return nil
}

func collectProfiles(iter *firestore.DocumentIterator) ([]*models.UserProfile, error) {
	defer iter.Stop()

	profiles := make([]*models.UserProfile, 0)
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate profiles: %w", err)
		}
		profile, err := decodeProfile(docSnap)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

func decodeProfile(docSnap *firestore.DocumentSnapshot) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := docSnap.DataTo(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile data for ID '%s': %w", docSnap.Ref.ID, err)
	}
	return withProfileDefaults(docSnap.Ref.ID, &profile), nil
}

// withProfileDefaults fills what older documents may lack.
func withProfileDefaults(id string, profile *models.UserProfile) *models.UserProfile {
	profile.ID = id
	if profile.SubscriptionTier == "" {
		profile.SubscriptionTier = models.TierFree
	}
	profile.FavoriteStoryIDs = nonNilStrings(profile.FavoriteStoryIDs)
	profile.Progress = nonNilProgress(profile.Progress)
	return profile
}

func profileFieldUpdates(u models.ProfileUpdate) []firestore.Update {
	var updates []firestore.Update
	if u.DisplayName != nil {
		updates = append(updates, firestore.Update{Path: "displayName", Value: *u.DisplayName})
	}
	if u.PhotoURL != nil {
		updates = append(updates, firestore.Update{Path: "photoURL", Value: *u.PhotoURL})
	}
	if u.SubscriptionTier != nil {
		updates = append(updates, firestore.Update{Path: "subscriptionTier", Value: string(*u.SubscriptionTier)})
	}
	if u.FavoriteStoryIDs != nil {
		updates = append(updates, firestore.Update{Path: "favoriteStoryIds", Value: *u.FavoriteStoryIDs})
	}
	if u.Progress != nil {
		updates = append(updates, firestore.Update{Path: "progress", Value: *u.Progress})
	}
	if u.StripeCustomerID != nil {
		updates = append(updates, firestore.Update{Path: "stripeCustomerId", Value: stringOrDelete(*u.StripeCustomerID)})
	}
	if u.IsAdmin != nil {
		updates = append(updates, firestore.Update{Path: "isAdmin", Value: *u.IsAdmin})
	}
	return updates
}

func subscriptionFieldUpdates(s models.SubscriptionState) []firestore.Update {
	var premiumSince interface{} = firestore.Delete
	if s.PremiumSince != nil {
		premiumSince = s.PremiumSince.UTC()
	}
	return []firestore.Update{
		{Path: "subscriptionTier", Value: string(s.Tier)},
		{Path: "stripeCustomerId", Value: stringOrDelete(s.CustomerID)},
		{Path: "stripeSubscriptionId", Value: stringOrDelete(s.SubscriptionID)},
		{Path: "canceledSubscriptionIds", Value: stringsOrDelete(s.CanceledSubscriptionIDs)},
		{Path: "premiumSince", Value: premiumSince},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	}
}

func stringOrDelete(s string) interface{} {
	if s == "" {
		return firestore.Delete
	}
	return s
}

func stringsOrDelete(s []string) interface{} {
	if len(s) == 0 {
		return firestore.Delete
	}
	return s
}
