package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"audiostory-backend-go/internal/db"
	"audiostory-backend-go/internal/models"
	"audiostory-backend-go/internal/payments"
)

// Webhook outcomes reported to callers and metrics.
const (
	OutcomeApplied   = "applied"
	OutcomeDuplicate = "duplicate"
	OutcomeStale     = "stale"
	OutcomeIgnored   = "ignored"
)

// WebhookResult is what happened to one verified payment event.
type WebhookResult struct {
	Event   *models.WebhookEvent
	Outcome string
}

// BillingConfig carries the payment settings the service needs.
type BillingConfig struct {
	PriceID string
	AppURL  string
	// AllowedOrigins limits which request origins may be used for return
	// URLs. Other origins fall back to AppURL. Empty allows any origin.
	AllowedOrigins []string
}

type billingService struct {
	profiles db.ProfileRepository
	provider payments.Provider
	cfg      BillingConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewBillingService creates a BillingService. provider may be nil when
// payments are not configured; every operation then fails with
// ErrPaymentsNotConfigured.
func NewBillingService(profiles db.ProfileRepository, provider payments.Provider, cfg BillingConfig, logger *zap.Logger) BillingService {
	return &billingService{
		profiles: profiles,
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateCheckoutSession starts a subscription checkout for the caller. The
// customer is created on first use and linked to the profile before the
// session is requested, so it stays linked even if checkout then fails.
func (s *billingService) CreateCheckoutSession(ctx context.Context, identity models.Identity, origin string) (*models.CheckoutSession, error) {
	if s.provider == nil {
		return nil, ErrPaymentsNotConfigured
	}
	if s.cfg.PriceID == "" {
		return nil, ErrPriceNotConfigured
	}

	profile, err := s.profiles.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, identity.UserID)
		}
		return nil, fmt.Errorf("failed to get profile '%s': %w", identity.UserID, err)
	}

	customerID, err := s.ensureCustomer(ctx, profile, identity)
	if err != nil {
		return nil, err
	}

	base := s.returnBase(origin)
	session, err := s.provider.CreateCheckoutSession(ctx, payments.CheckoutParams{
		CustomerID: customerID,
		PriceID:    s.cfg.PriceID,
		UserID:     profile.ID,
		SuccessURL: base + "/account?checkout=success",
		CancelURL:  base + "/account?checkout=cancel",
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Checkout session created",
		zap.String("userID", profile.ID), zap.String("customerID", customerID), zap.String("sessionID", session.ID))
	return session, nil
}

func (s *billingService) CreatePortalSession(ctx context.Context, identity models.Identity, origin string) (string, error) {
	if s.provider == nil {
		return "", ErrPaymentsNotConfigured
	}
	profile, err := s.profiles.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, identity.UserID)
		}
		return "", fmt.Errorf("failed to get profile '%s': %w", identity.UserID, err)
	}
	if profile.StripeCustomerID == "" {
		return "", fmt.Errorf("%w: user '%s'", ErrCustomerNotLinked, profile.ID)
	}
	return s.provider.CreatePortalSession(ctx, profile.StripeCustomerID, s.returnBase(origin)+"/account")
}

// HandleWebhook verifies and applies one payment event. Replays and
// out-of-order deliveries are absorbed: every event either changes the
// profile once or is reported as duplicate, stale or ignored.
func (s *billingService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if s.provider == nil {
		return nil, ErrPaymentsNotConfigured
	}
	event, err := s.provider.ConstructEvent(payload, signature)
	if err != nil {
		return nil, err
	}

	log := s.logger.With(zap.String("eventID", event.ID), zap.String("eventType", event.Type))
	var outcome string
	switch event.Kind {
	case models.EventCheckoutCompleted:
		outcome, err = s.applyCheckoutCompleted(ctx, event, log)
	case models.EventSubscriptionEnded:
		outcome, err = s.applySubscriptionEnded(ctx, event, log)
	default:
		outcome = OutcomeIgnored
	}
	if err != nil {
		return nil, err
	}

	log.Info("Webhook event handled", zap.String("outcome", outcome), zap.String("userID", event.UserID))
	return &WebhookResult{Event: event, Outcome: outcome}, nil
}

func (s *billingService) applyCheckoutCompleted(ctx context.Context, event *models.WebhookEvent, log *zap.Logger) (string, error) {
	if event.UserID == "" {
		log.Warn("Checkout completed without a user id")
		return OutcomeIgnored, nil
	}

	var result models.ActivationResult
	_, err := s.profiles.UpdateSubscription(ctx, event.UserID, func(state *models.SubscriptionState) {
		result = state.ActivatePremium(event.CustomerID, event.SubscriptionID, s.now())
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			log.Warn("Checkout completed for unknown profile", zap.String("userID", event.UserID))
			return OutcomeIgnored, nil
		}
		return "", fmt.Errorf("activating premium for '%s': %w", event.UserID, err)
	}
	return string(result), nil
}

func (s *billingService) applySubscriptionEnded(ctx context.Context, event *models.WebhookEvent, log *zap.Logger) (string, error) {
	if event.SubscriptionID == "" {
		log.Warn("Subscription event without a subscription id")
		return OutcomeIgnored, nil
	}

	userID := event.UserID
	if userID == "" {
		resolved, err := s.ownerOfCustomer(ctx, event.CustomerID)
		if err != nil {
			return "", err
		}
		if resolved == "" {
			log.Warn("No profile linked to customer", zap.String("customerID", event.CustomerID))
			return OutcomeIgnored, nil
		}
		userID = resolved
		event.UserID = resolved
	}

	reverted := false
	changed, err := s.profiles.UpdateSubscription(ctx, userID, func(state *models.SubscriptionState) {
		reverted = state.EndSubscription(event.SubscriptionID)
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			log.Warn("Subscription ended for unknown profile", zap.String("userID", userID))
			return OutcomeIgnored, nil
		}
		return "", fmt.Errorf("ending subscription for '%s': %w", userID, err)
	}
	switch {
	case reverted:
		return OutcomeApplied, nil
	case changed:
		return OutcomeStale, nil
	default:
		return OutcomeDuplicate, nil
	}
}

func (s *billingService) ownerOfCustomer(ctx context.Context, customerID string) (string, error) {
	if customerID == "" {
		return "", nil
	}
	matches, err := s.profiles.FindByCustomerID(ctx, customerID, 2)
	if err != nil {
		return "", fmt.Errorf("looking up customer '%s': %w", customerID, err)
	}
	switch len(matches) {
	case 0:
		return "", nil
	case 1:
		return matches[0].ID, nil
	default:
		return "", fmt.Errorf("%w: '%s'", ErrAmbiguousCustomer, customerID)
	}
}

// ensureCustomer links a payment customer to the profile exactly once. If a
// concurrent request linked one first, that customer wins.
func (s *billingService) ensureCustomer(ctx context.Context, profile *models.UserProfile, identity models.Identity) (string, error) {
	if profile.StripeCustomerID != "" {
		return profile.StripeCustomerID, nil
	}
	email := profile.Email
	if email == "" {
		email = identity.Email
	}
	created, err := s.provider.CreateCustomer(ctx, email, profile.ID)
	if err != nil {
		return "", err
	}

	linked := created
	_, err = s.profiles.UpdateSubscription(ctx, profile.ID, func(state *models.SubscriptionState) {
		if state.CustomerID == "" {
			state.CustomerID = created
		}
		linked = state.CustomerID
	})
	if err != nil {
		return "", fmt.Errorf("linking customer '%s' to '%s': %w", created, profile.ID, err)
	}
	if linked != created {
		s.logger.Warn("Discarding customer created by a concurrent checkout",
			zap.String("userID", profile.ID), zap.String("discarded", created), zap.String("kept", linked))
	}
	return linked, nil
}

func (s *billingService) returnBase(origin string) string {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin == "" || origin == "null" || !s.originAllowed(origin) {
		origin = s.cfg.AppURL
	}
	return strings.TrimRight(origin, "/")
}

func (s *billingService) originAllowed(origin string) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if strings.EqualFold(strings.TrimRight(allowed, "/"), origin) {
			return true
		}
	}
	return false
}
