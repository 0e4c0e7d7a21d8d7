package core

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"audiostory-backend-go/internal/db"
	"audiostory-backend-go/internal/models"
	"audiostory-backend-go/internal/payments"
	"audiostory-backend-go/internal/storage"
)

// fakeProfiles is an in-memory ProfileRepository. UpdateSubscription holds
// the lock for the whole read-modify-write like the real transactions do.
type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]models.UserProfile
	writes   int
	listErr  error
}

func newFakeProfiles(profiles ...*models.UserProfile) *fakeProfiles {
	f := &fakeProfiles{profiles: map[string]models.UserProfile{}}
	for _, p := range profiles {
		f.profiles[p.ID] = *p
	}
	return f
}

func (f *fakeProfiles) get(id string) models.UserProfile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[id]
}

func (f *fakeProfiles) GetByID(_ context.Context, id string) (*models.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile '%s': %w", id, db.ErrNotFound)
	}
	return &p, nil
}

func (f *fakeProfiles) Create(_ context.Context, profile *models.UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[profile.ID]; ok {
		return db.ErrAlreadyExists
	}
	f.profiles[profile.ID] = *profile
	return nil
}

func (f *fakeProfiles) Update(_ context.Context, id string, u models.ProfileUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return db.ErrNotFound
	}
	if u.DisplayName != nil {
		p.DisplayName = *u.DisplayName
	}
	if u.PhotoURL != nil {
		p.PhotoURL = *u.PhotoURL
	}
	if u.SubscriptionTier != nil {
		p.SubscriptionTier = *u.SubscriptionTier
	}
	if u.FavoriteStoryIDs != nil {
		p.FavoriteStoryIDs = *u.FavoriteStoryIDs
	}
	if u.Progress != nil {
		p.Progress = *u.Progress
	}
	if u.StripeCustomerID != nil {
		p.StripeCustomerID = *u.StripeCustomerID
	}
	if u.IsAdmin != nil {
		p.IsAdmin = *u.IsAdmin
	}
	f.profiles[id] = p
	f.writes++
	return nil
}

func (f *fakeProfiles) UpdateSubscription(_ context.Context, id string, mutate func(*models.SubscriptionState)) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return false, db.ErrNotFound
	}
	before := p.Subscription()
	state := before
	mutate(&state)
	if state.Equal(before) {
		return false, nil
	}
	p.SubscriptionTier = state.Tier
	p.StripeCustomerID = state.CustomerID
	p.StripeSubscriptionID = state.SubscriptionID
	p.CanceledSubscriptionIDs = state.CanceledSubscriptionIDs
	p.PremiumSince = state.PremiumSince
	f.profiles[id] = p
	f.writes++
	return true, nil
}

func (f *fakeProfiles) FindByCustomerID(_ context.Context, customerID string, limit int) ([]*models.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.UserProfile
	for _, p := range f.profiles {
		if p.StripeCustomerID == customerID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeProfiles) List(_ context.Context) ([]*models.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*models.UserProfile, 0, len(f.profiles))
	for _, p := range f.profiles {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeProfiles) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[id]; !ok {
		return db.ErrNotFound
	}
	delete(f.profiles, id)
	return nil
}

// fakePayments verifies webhooks with the real signature check.
type fakePayments struct {
	secret          string
	customersMade   int
	customerErr     error
	checkoutErr     error
	lastCheckout    payments.CheckoutParams
	portalCustomer  string
	portalReturnURL string
}

func (f *fakePayments) CreateCustomer(_ context.Context, _ string, userID string) (string, error) {
	if f.customerErr != nil {
		return "", f.customerErr
	}
	f.customersMade++
	return fmt.Sprintf("cus_%s_%d", userID, f.customersMade), nil
}

func (f *fakePayments) CreateCheckoutSession(_ context.Context, params payments.CheckoutParams) (*models.CheckoutSession, error) {
	f.lastCheckout = params
	if f.checkoutErr != nil {
		return nil, f.checkoutErr
	}
	return &models.CheckoutSession{ID: "cs_test", URL: "https://checkout.example.com/cs_test"}, nil
}

func (f *fakePayments) CreatePortalSession(_ context.Context, customerID, returnURL string) (string, error) {
	f.portalCustomer = customerID
	f.portalReturnURL = returnURL
	return "https://billing.example.com/session", nil
}

func (f *fakePayments) ConstructEvent(payload []byte, signature string) (*models.WebhookEvent, error) {
	return payments.ParseEvent(payload, signature, f.secret)
}

type fakeIdentity struct {
	deleted []string
	err     error
}

func (f *fakeIdentity) Verify(context.Context, string) (*models.Identity, error) {
	return nil, fmt.Errorf("not used")
}

func (f *fakeIdentity) DeleteUser(_ context.Context, userID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, userID)
	return nil
}

func (f *fakeIdentity) Name() string { return "fake" }

type storedObject struct {
	storage.Object
	data []byte
}

type fakeStore struct {
	saved []storedObject
}

func (f *fakeStore) Save(_ context.Context, obj storage.Object) (string, error) {
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return "", err
	}
	f.saved = append(f.saved, storedObject{Object: obj, data: data})
	return "/uploads/" + obj.Key, nil
}

func (f *fakeStore) Name() string { return "fake" }

func profile(id string, tier models.Tier) *models.UserProfile {
	return &models.UserProfile{
		ID:               id,
		Email:            id + "@example.com",
		SubscriptionTier: tier,
		FavoriteStoryIDs: []string{},
		Progress:         []models.ListeningProgress{},
		CreatedAt:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}
