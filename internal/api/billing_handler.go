package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"audiostory-backend-go/internal/core"
	"audiostory-backend-go/internal/metrics"
)

const maxWebhookBodyBytes = 64 << 10

// BillingHandler handles billing-related API endpoints.
type BillingHandler struct {
	billingService core.BillingService
	logger         *zap.Logger
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(bs core.BillingService, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{billingService: bs, logger: logger}
}

// CreateCheckoutSession handles POST /billing/create-checkout-session. The
// request Origin decides where Stripe sends the user back to, when allowed.
func (h *BillingHandler) CreateCheckoutSession(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	session, err := h.billingService.CreateCheckoutSession(c.Request.Context(), *identity, c.GetHeader("Origin"))
	if err != nil {
		metrics.RecordCheckout("error")
		respondError(c, h.logger, err)
		return
	}
	metrics.RecordCheckout("created")
	c.JSON(http.StatusOK, CheckoutSessionResponse{SessionID: session.ID, CheckoutURL: session.URL})
}

// CreatePortalSession handles POST /billing/create-portal-session.
func (h *BillingHandler) CreatePortalSession(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	url, err := h.billingService.CreatePortalSession(c.Request.Context(), *identity, c.GetHeader("Origin"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, PortalSessionResponse{URL: url})
}

// HandleStripeWebhook handles POST /billing/webhooks/stripe. The raw body is
// needed for signature verification, so it is read before any binding.
func (h *BillingHandler) HandleStripeWebhook(c *gin.Context) {
	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		metrics.RecordWebhookEvent("unknown", "rejected")
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "Missing webhook signature"})
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.RecordWebhookEvent("unknown", "rejected")
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "Webhook payload too large"})
			return
		}
		h.logger.Error("Failed to read webhook body", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "Could not read request body"})
		return
	}

	result, err := h.billingService.HandleWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		metrics.RecordWebhookEvent("unknown", "error")
		respondError(c, h.logger, err)
		return
	}

	metrics.RecordWebhookEvent(result.Event.Type, result.Outcome)
	c.JSON(http.StatusOK, WebhookResponse{Received: true, Outcome: result.Outcome})
}
