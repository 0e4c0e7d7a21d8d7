package api

import (
	"context"
	"sync"

	"audiostory-backend-go/internal/auth"
	"audiostory-backend-go/internal/db"
	"audiostory-backend-go/internal/models"
	"audiostory-backend-go/internal/payments"
)

// tokenProvider accepts the tokens it was seeded with.
type tokenProvider struct {
	identities map[string]*models.Identity
	deleted    []string
}

func (p *tokenProvider) Verify(_ context.Context, token string) (*models.Identity, error) {
	identity, ok := p.identities[token]
	if !ok {
		return nil, auth.ErrUnauthenticated
	}
	return identity, nil
}

func (p *tokenProvider) DeleteUser(_ context.Context, userID string) error {
	p.deleted = append(p.deleted, userID)
	return nil
}

func (p *tokenProvider) Name() string { return "test" }

type memProfiles struct {
	mu       sync.Mutex
	profiles map[string]models.UserProfile
}

func newMemProfiles(profiles ...*models.UserProfile) *memProfiles {
	m := &memProfiles{profiles: map[string]models.UserProfile{}}
	for _, p := range profiles {
		m.profiles[p.ID] = *p
	}
	return m
}

func (m *memProfiles) get(id string) (models.UserProfile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	return p, ok
}

func (m *memProfiles) GetByID(_ context.Context, id string) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &p, nil
}

func (m *memProfiles) Create(_ context.Context, profile *models.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[profile.ID]; ok {
		return db.ErrAlreadyExists
	}
	m.profiles[profile.ID] = *profile
	return nil
}

func (m *memProfiles) Update(_ context.Context, id string, u models.ProfileUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
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
	m.profiles[id] = p
	return nil
}

func (m *memProfiles) UpdateSubscription(_ context.Context, id string, mutate func(*models.SubscriptionState)) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
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
	m.profiles[id] = p
	return true, nil
}

func (m *memProfiles) FindByCustomerID(_ context.Context, customerID string, limit int) ([]*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.UserProfile
	for _, p := range m.profiles {
		if p.StripeCustomerID == customerID && len(out) < limit {
			p := p
			out = append(out, &p)
		}
	}
	return out, nil
}

func (m *memProfiles) List(_ context.Context) ([]*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.UserProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		p := p
		out = append(out, &p)
	}
	return out, nil
}

func (m *memProfiles) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.profiles, id)
	return nil
}

// stubPayments returns canned sessions and verifies webhooks for real.
type stubPayments struct {
	secret string
}

func (s *stubPayments) CreateCustomer(_ context.Context, _ string, userID string) (string, error) {
	return "cus_" + userID, nil
}

func (s *stubPayments) CreateCheckoutSession(_ context.Context, _ payments.CheckoutParams) (*models.CheckoutSession, error) {
	return &models.CheckoutSession{ID: "cs_test", URL: "https://checkout.example.com/cs_test"}, nil
}

func (s *stubPayments) CreatePortalSession(_ context.Context, _ string, _ string) (string, error) {
	return "https://billing.example.com/session", nil
}

func (s *stubPayments) ConstructEvent(payload []byte, sigHeader string) (*models.WebhookEvent, error) {
	return payments.ParseEvent(payload, sigHeader, s.secret)
}
