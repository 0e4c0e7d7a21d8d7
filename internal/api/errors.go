package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"audiostory-backend-go/internal/auth"
	"audiostory-backend-go/internal/core"
	"audiostory-backend-go/internal/db"
	"audiostory-backend-go/internal/payments"
)

// respondError maps service errors to HTTP responses. Details of upstream
// and internal failures are logged, never returned.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		status int
		body   ErrorResponse
	)
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		status, body = http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"}
	case errors.Is(err, core.ErrUserNotFound):
		status, body = http.StatusNotFound, ErrorResponse{Error: "User profile not found"}
	case errors.Is(err, core.ErrStoryNotFound):
		status, body = http.StatusNotFound, ErrorResponse{Error: "Story not found"}
	case errors.Is(err, core.ErrValidation):
		status, body = http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Details: err.Error()}
	case errors.Is(err, core.ErrCustomerNotLinked):
		status, body = http.StatusBadRequest, ErrorResponse{Error: "User not linked to payment provider"}
	case errors.Is(err, core.ErrUploadTypeMismatch):
		status, body = http.StatusBadRequest, ErrorResponse{Error: "File content does not match the upload type", Details: err.Error()}
	case errors.Is(err, core.ErrUploadTooLarge):
		status, body = http.StatusRequestEntityTooLarge, ErrorResponse{Error: "File too large"}
	case errors.Is(err, payments.ErrInvalidSignature):
		status, body = http.StatusBadRequest, ErrorResponse{Error: "Webhook signature verification failed"}
	case errors.Is(err, payments.ErrMalformedEvent):
		status, body = http.StatusBadRequest, ErrorResponse{Error: "Webhook payload is malformed"}
	case errors.Is(err, db.ErrReadOnly):
		status, body = http.StatusConflict, ErrorResponse{Error: "Catalog is read-only"}
	case errors.Is(err, core.ErrPriceNotConfigured):
		status, body = http.StatusInternalServerError, ErrorResponse{Error: "Stripe price configuration missing"}
	case errors.Is(err, core.ErrPaymentsNotConfigured), errors.Is(err, payments.ErrWebhookNotConfigured):
		status, body = http.StatusInternalServerError, ErrorResponse{Error: "Payments are not configured"}
	case errors.Is(err, payments.ErrProvider):
		status, body = http.StatusBadGateway, ErrorResponse{Error: "Payment provider error"}
	case errors.Is(err, core.ErrUpstream):
		status, body = http.StatusBadGateway, ErrorResponse{Error: "Identity provider error"}
	default:
		status, body = http.StatusInternalServerError, ErrorResponse{Error: "An unexpected internal server error occurred."}
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	} else {
		logger.Debug("Request rejected", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: validationDetails(err)})
}
