package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"audiostory-backend-go/internal/models"
)

const maxSupabaseResponseBytes = 1 << 20

// SupabaseConfig configures the Supabase (GoTrue) identity provider.
type SupabaseConfig struct {
	URL            string
	ServiceRoleKey string
	HTTPClient     *http.Client

	// FailureThreshold is the number of consecutive upstream failures
	// before the breaker opens.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// SupabaseProvider verifies Supabase access tokens by asking the GoTrue API
// who the token belongs to.
type SupabaseProvider struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *zap.Logger
}

// statusError is a non-2xx response from GoTrue.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("supabase auth responded with status %d", e.code)
}

type supabaseUser struct {
	ID               string                 `json:"id"`
	Email            string                 `json:"email"`
	EmailConfirmedAt *time.Time             `json:"email_confirmed_at"`
	UserMetadata     map[string]interface{} `json:"user_metadata"`
}

// NewSupabaseProvider creates a provider for the project at cfg.URL.
func NewSupabaseProvider(cfg SupabaseConfig, logger *zap.Logger) (*SupabaseProvider, error) {
	if cfg.URL == "" || cfg.ServiceRoleKey == "" {
		return nil, errors.New("supabase URL and service role key are required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	p := &SupabaseProvider{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		serviceKey: cfg.ServiceRoleKey,
		httpClient: cfg.HTTPClient,
		logger:     logger,
	}
	p.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "supabase-auth",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// A rejected token is a healthy answer from the provider.
		IsSuccessful: func(err error) bool {
			var se *statusError
			return err == nil || (errors.As(err, &se) && se.code < http.StatusInternalServerError)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return p, nil
}

func (p *SupabaseProvider) Name() string { return "supabase" }

// Verify resolves the access token to a user via GET /auth/v1/user.
func (p *SupabaseProvider) Verify(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	body, err := p.call(ctx, http.MethodGet, "/auth/v1/user", token)
	if err != nil {
		p.logger.Debug("Supabase token rejected", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	var user supabaseUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("%w: decoding user: %v", ErrUnauthenticated, err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: response carried no user id", ErrUnauthenticated)
	}

	return &models.Identity{
		UserID:        user.ID,
		Email:         user.Email,
		EmailVerified: user.EmailConfirmedAt != nil && !user.EmailConfirmedAt.IsZero(),
		DisplayName:   metadataString(user.UserMetadata, "full_name", "name"),
		PhotoURL:      metadataString(user.UserMetadata, "avatar_url", "picture"),
	}, nil
}

// DeleteUser removes the account through the admin API.
func (p *SupabaseProvider) DeleteUser(ctx context.Context, userID string) error {
	_, err := p.call(ctx, http.MethodDelete, "/auth/v1/admin/users/"+url.PathEscape(userID), p.serviceKey)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			p.logger.Info("Supabase account already deleted", zap.String("userID", userID))
			return nil
		}
		return fmt.Errorf("deleting supabase user '%s': %w", userID, err)
	}
	return nil
}

func (p *SupabaseProvider) call(ctx context.Context, method, path, bearer string) ([]byte, error) {
	return p.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("apikey", p.serviceKey)
		req.Header.Set("Authorization", "Bearer "+bearer)

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxSupabaseResponseBytes))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &statusError{code: resp.StatusCode}
		}
		return body, nil
	})
}

func metadataString(meta map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := meta[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
