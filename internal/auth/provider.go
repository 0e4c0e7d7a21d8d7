// Package auth verifies caller identity against the configured identity
// provider. Every failure is reported as ErrUnauthenticated.
package auth

import (
	"context"
	"errors"
	"strings"

	"audiostory-backend-go/internal/models"
)

// ErrUnauthenticated is returned when a token is missing, malformed,
// rejected, or cannot be checked.
var ErrUnauthenticated = errors.New("unauthenticated")

// IdentityProvider verifies bearer tokens and manages provider accounts.
type IdentityProvider interface {
	// Verify validates token and returns the caller's identity.
	Verify(ctx context.Context, token string) (*models.Identity, error)
	// DeleteUser removes the provider account. Deleting an account that no
	// longer exists is not an error.
	DeleteUser(ctx context.Context, userID string) error
	// Name identifies the provider in logs.
	Name() string
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrUnauthenticated
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrUnauthenticated
	}
	return parts[1], nil
}
