package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"audiostory-backend-go/internal/db"
	"audiostory-backend-go/internal/models"
)

func newTestUserService(profiles *fakeProfiles, identity *fakeIdentity) *userService {
	svc := NewUserService(profiles, db.NewStaticCatalog(), identity, zap.NewNop()).(*userService)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestEnsureProfileCreatesOnce(t *testing.T) {
	profiles := newFakeProfiles()
	svc := newTestUserService(profiles, &fakeIdentity{})
	ctx := context.Background()
	identity := models.Identity{UserID: "u1", Email: "u1@example.com", DisplayName: "Ada"}

	created, isNew, err := svc.EnsureProfile(ctx, identity)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, models.TierFree, created.SubscriptionTier)
	assert.Equal(t, "Ada", created.DisplayName)
	assert.NotNil(t, created.FavoriteStoryIDs)
	assert.NotNil(t, created.Progress)

	again, isNew, err := svc.EnsureProfile(ctx, models.Identity{UserID: "u1", DisplayName: "Changed"})
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, "Ada", again.DisplayName, "existing profile is returned untouched")
}

func TestEnsureProfileConcurrentFirstSignIn(t *testing.T) {
	profiles := newFakeProfiles()
	svc := newTestUserService(profiles, &fakeIdentity{})
	identity := models.Identity{UserID: "u1", Email: "u1@example.com"}

	const callers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, isNew, err := svc.EnsureProfile(context.Background(), identity)
			assert.NoError(t, err)
			assert.Equal(t, "u1", p.ID)
			if isNew {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, createdCount)
}

func TestEnsureProfileRequiresUserID(t *testing.T) {
	svc := newTestUserService(newFakeProfiles(), &fakeIdentity{})
	_, _, err := svc.EnsureProfile(context.Background(), models.Identity{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestToggleFavorite(t *testing.T) {
	profiles := newFakeProfiles(profile("u1", models.TierFree))
	svc := newTestUserService(profiles, &fakeIdentity{})
	ctx := context.Background()

	p, err := svc.ToggleFavorite(ctx, "u1", "memory-hack", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"memory-hack"}, p.FavoriteStoryIDs)

	p, err = svc.ToggleFavorite(ctx, "u1", "memory-hack", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"memory-hack"}, p.FavoriteStoryIDs, "adding twice keeps one entry")

	p, err = svc.ToggleFavorite(ctx, "u1", "memory-hack", false)
	require.NoError(t, err)
	assert.Empty(t, p.FavoriteStoryIDs)

	_, err = svc.ToggleFavorite(ctx, "u1", "no-such-story", true)
	assert.ErrorIs(t, err, ErrStoryNotFound)

	_, err = svc.ToggleFavorite(ctx, "missing", "memory-hack", true)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRecordProgressKeepsOneEntryPerStory(t *testing.T) {
	profiles := newFakeProfiles(profile("u1", models.TierFree))
	svc := newTestUserService(profiles, &fakeIdentity{})
	ctx := context.Background()

	_, err := svc.RecordProgress(ctx, "u1", "memory-hack", 30)
	require.NoError(t, err)
	p, err := svc.RecordProgress(ctx, "u1", "memory-hack", 95.5)
	require.NoError(t, err)
	require.Len(t, p.Progress, 1)
	assert.Equal(t, 95.5, p.Progress[0].PositionSeconds)

	_, err = svc.RecordProgress(ctx, "u1", "memory-hack", -1)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.RecordProgress(ctx, "u1", "no-such-story", 1)
	assert.ErrorIs(t, err, ErrStoryNotFound)
}

func TestUpdateProfile(t *testing.T) {
	profiles := newFakeProfiles(profile("u1", models.TierFree))
	svc := newTestUserService(profiles, &fakeIdentity{})
	ctx := context.Background()

	name := "  New Name "
	p, err := svc.UpdateProfile(ctx, "u1", models.ProfileUpdate{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "New Name", p.DisplayName)
	assert.Equal(t, "u1@example.com", p.Email, "merge leaves other fields intact")

	_, err = svc.UpdateProfile(ctx, "u1", models.ProfileUpdate{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateProfile(ctx, "missing", models.ProfileUpdate{DisplayName: &name})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSetTier(t *testing.T) {
	profiles := newFakeProfiles(profile("u1", models.TierFree))
	svc := newTestUserService(profiles, &fakeIdentity{})
	ctx := context.Background()

	admin := true
	require.NoError(t, svc.SetTier(ctx, "u1", models.TierPremium, &admin))
	stored := profiles.get("u1")
	assert.Equal(t, models.TierPremium, stored.SubscriptionTier)
	assert.True(t, stored.IsAdmin)

	require.NoError(t, svc.SetTier(ctx, "u1", models.TierFree, nil))
	stored = profiles.get("u1")
	assert.Equal(t, models.TierFree, stored.SubscriptionTier)
	assert.True(t, stored.IsAdmin, "isAdmin untouched when omitted")

	assert.ErrorIs(t, svc.SetTier(ctx, "u1", models.Tier("gold"), nil), ErrValidation)
	assert.ErrorIs(t, svc.SetTier(ctx, "", models.TierFree, nil), ErrValidation)
	assert.ErrorIs(t, svc.SetTier(ctx, "missing", models.TierFree, nil), ErrUserNotFound)
}

func TestDeleteUser(t *testing.T) {
	profiles := newFakeProfiles(profile("u1", models.TierFree))
	identity := &fakeIdentity{}
	svc := newTestUserService(profiles, identity)
	ctx := context.Background()

	require.NoError(t, svc.DeleteUser(ctx, "u1"))
	assert.Equal(t, []string{"u1"}, identity.deleted)
	_, err := profiles.GetByID(ctx, "u1")
	assert.ErrorIs(t, err, db.ErrNotFound)

	err = svc.DeleteUser(ctx, "u1")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Len(t, identity.deleted, 1, "identity provider not called for unknown profiles")
}

func TestDeleteUserIdentityFailureKeepsProfile(t *testing.T) {
	profiles := newFakeProfiles(profile("u1", models.TierFree))
	svc := newTestUserService(profiles, &fakeIdentity{err: errors.New("provider down")})

	err := svc.DeleteUser(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrUpstream)
	_, getErr := profiles.GetByID(context.Background(), "u1")
	assert.NoError(t, getErr)
}

func TestListProfilesNewestFirst(t *testing.T) {
	older := profile("old", models.TierFree)
	newer := profile("new", models.TierFree)
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)
	svc := newTestUserService(newFakeProfiles(older, newer), &fakeIdentity{})

	list, err := svc.ListProfiles(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
}
