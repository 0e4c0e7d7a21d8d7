// Package payments talks to the payment provider: customers, hosted
// checkout and billing portal sessions, and signed webhook events.
package payments

import (
	"context"
	"errors"

	"audiostory-backend-go/internal/models"
)

// MetadataUserIDKey is the metadata key carrying the profile id on
// customers, checkout sessions and subscriptions.
const MetadataUserIDKey = "userId"

// legacyUserIDKey is read as a fallback for objects created before the key
// was renamed.
const legacyUserIDKey = "firebaseUid"

var (
	ErrInvalidSignature     = errors.New("webhook signature verification failed")
	ErrMalformedEvent       = errors.New("webhook payload is malformed")
	ErrProvider             = errors.New("payment provider request failed")
	ErrWebhookNotConfigured = errors.New("webhook secret is not configured")
)

// CheckoutParams describes a subscription checkout for one customer.
type CheckoutParams struct {
	CustomerID string
	PriceID    string
	UserID     string
	SuccessURL string
	CancelURL  string
}

// Provider is the payment gateway used by the billing service.
type Provider interface {
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*models.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	// ConstructEvent verifies the signature header against the raw payload
	// before decoding it.
	ConstructEvent(payload []byte, signatureHeader string) (*models.WebhookEvent, error)
}
