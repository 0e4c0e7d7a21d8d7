package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"audiostory-backend-go/internal/auth"
	"audiostory-backend-go/internal/models"
)

const identityKey = "identity"

// ErrorResponse is a local definition for sending standardized error messages.
// It mirrors the one in internal/api/dto_models.go to avoid import cycles.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// AuthMiddleware authenticates requests against the configured identity provider.
type AuthMiddleware struct {
	provider auth.IdentityProvider
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
// It panics if provider is nil, as this is a critical setup dependency.
func NewAuthMiddleware(provider auth.IdentityProvider, logger *zap.Logger) *AuthMiddleware {
	if provider == nil {
		panic("identity provider is not initialized for AuthMiddleware")
	}
	return &AuthMiddleware{provider: provider, logger: logger}
}

// VerifyToken rejects requests without a valid bearer token. On success the
// verified identity is stored in the Gin context.
func (m *AuthMiddleware) VerifyToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header format must be 'Bearer {token}'"})
			return
		}

		identity, err := m.provider.Verify(c.Request.Context(), token)
		if err != nil {
			m.logger.Debug("Token verification failed",
				zap.String("provider", m.provider.Name()), zap.String("path", c.FullPath()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid or expired authentication token"})
			return
		}

		setIdentity(c, identity)
		c.Next()
	}
}

// OptionalAuth attaches the identity when a valid token is present and lets
// every other request through as anonymous.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		token, err := auth.BearerToken(header)
		if err == nil {
			identity, verifyErr := m.provider.Verify(c.Request.Context(), token)
			if verifyErr == nil {
				setIdentity(c, identity)
			} else {
				m.logger.Debug("Ignoring invalid token on public route", zap.Error(verifyErr))
			}
		}
		c.Next()
	}
}

// IdentityFromContext returns the identity stored by VerifyToken or OptionalAuth.
func IdentityFromContext(c *gin.Context) (*models.Identity, bool) {
	raw, exists := c.Get(identityKey)
	if !exists {
		return nil, false
	}
	identity, ok := raw.(*models.Identity)
	if !ok || identity == nil || identity.UserID == "" {
		return nil, false
	}
	return identity, true
}

func setIdentity(c *gin.Context, identity *models.Identity) {
	c.Set(identityKey, identity)
	c.Set("userID", identity.UserID)
	if identity.Email != "" {
		c.Set("userEmail", identity.Email)
	}
}
