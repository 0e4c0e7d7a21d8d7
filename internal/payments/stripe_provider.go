package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"go.uber.org/zap"

	"audiostory-backend-go/internal/models"
)

// StripeProvider implements Provider on the Stripe API.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
	logger        *zap.Logger
}

// NewStripeProvider creates a provider with its own API client so the
// package-level stripe.Key is never touched.
func NewStripeProvider(secretKey, webhookSecret string, logger *zap.Logger) (*StripeProvider, error) {
	if secretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	return &StripeProvider{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
		logger:        logger,
	}, nil
}

func (p *StripeProvider) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.AddMetadata(MetadataUserIDKey, userID)

	cust, err := p.api.Customers.New(params)
	if err != nil {
		return "", p.providerError("creating customer", err)
	}
	return cust.ID, nil
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, in CheckoutParams) (*models.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(in.CustomerID),
		ClientReferenceID:  stripe.String(in.UserID),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(in.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{MetadataUserIDKey: in.UserID},
		},
	}
	params.Context = ctx
	params.AddMetadata(MetadataUserIDKey, in.UserID)

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, p.providerError("creating checkout session", err)
	}
	return &models.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (p *StripeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	sess, err := p.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", p.providerError("creating billing portal session", err)
	}
	return sess.URL, nil
}

func (p *StripeProvider) ConstructEvent(payload []byte, signatureHeader string) (*models.WebhookEvent, error) {
	return ParseEvent(payload, signatureHeader, p.webhookSecret)
}

func (p *StripeProvider) providerError(op string, err error) error {
	fields := []zap.Field{zap.String("operation", op), zap.Error(err)}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		fields = append(fields,
			zap.String("stripe_code", string(stripeErr.Code)),
			zap.String("stripe_request_id", stripeErr.RequestID),
			zap.Int("http_status", stripeErr.HTTPStatusCode))
	}
	p.logger.Error("Stripe request failed", fields...)
	return fmt.Errorf("%w: %s: %v", ErrProvider, op, err)
}
