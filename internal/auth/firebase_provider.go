package auth

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"

	"audiostory-backend-go/internal/models"
)

// firebaseAuthClient is the subset of *auth.Client the provider uses.
type firebaseAuthClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	DeleteUser(ctx context.Context, uid string) error
}

// FirebaseProvider verifies Firebase ID tokens with the Admin SDK.
type FirebaseProvider struct {
	client firebaseAuthClient
	logger *zap.Logger
}

// NewFirebaseProvider wraps a Firebase Auth client. *auth.Client satisfies
// the client parameter.
func NewFirebaseProvider(client firebaseAuthClient, logger *zap.Logger) *FirebaseProvider {
	if client == nil {
		panic("Firebase Auth client is not initialized for FirebaseProvider")
	}
	return &FirebaseProvider{client: client, logger: logger}
}

func (p *FirebaseProvider) Name() string { return "firebase" }

// Verify checks the ID token and copies the standard email, email_verified,
// name and picture claims into the identity.
func (p *FirebaseProvider) Verify(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	decoded, err := p.client.VerifyIDToken(ctx, token)
	if err != nil {
		p.logger.Debug("Firebase ID token rejected", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	identity := &models.Identity{UserID: decoded.UID}
	if email, ok := decoded.Claims["email"].(string); ok {
		identity.Email = email
	}
	if verified, ok := decoded.Claims["email_verified"].(bool); ok {
		identity.EmailVerified = verified
	}
	if name, ok := decoded.Claims["name"].(string); ok {
		identity.DisplayName = name
	}
	if picture, ok := decoded.Claims["picture"].(string); ok {
		identity.PhotoURL = picture
	}
	return identity, nil
}

// DeleteUser removes the Firebase account for uid.
func (p *FirebaseProvider) DeleteUser(ctx context.Context, uid string) error {
	if err := p.client.DeleteUser(ctx, uid); err != nil {
		if auth.IsUserNotFound(err) {
			p.logger.Info("Firebase account already deleted", zap.String("userID", uid))
			return nil
		}
		return fmt.Errorf("deleting firebase user '%s': %w", uid, err)
	}
	return nil
}
