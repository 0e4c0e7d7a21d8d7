package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend identifies which persistence and identity stack is active.
type Backend string

const (
	// BackendRelational is Supabase auth with a Postgres profile store.
	BackendRelational Backend = "relational"
	// BackendDocument is Firebase auth with a Firestore profile store.
	BackendDocument Backend = "document"
	// BackendNone serves the static catalog only.
	BackendNone Backend = "none"
)

// Config holds all configuration for the application.
type Config struct {
	Port     string `mapstructure:"PORT"`
	GinMode  string `mapstructure:"GIN_MODE"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	ClientURL  string `mapstructure:"CLIENT_URL"`
	AppURL     string `mapstructure:"APP_URL"`
	AdminEmail string `mapstructure:"ADMIN_EMAIL"`

	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`

	SupabaseURL            string `mapstructure:"SUPABASE_URL"`
	SupabaseServiceRoleKey string `mapstructure:"SUPABASE_SERVICE_ROLE_KEY"`
	DatabaseURL            string `mapstructure:"DATABASE_URL"`
	DatabaseAutoMigrate    bool   `mapstructure:"DATABASE_AUTO_MIGRATE"`

	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	StripePriceID       string `mapstructure:"STRIPE_PRICE_ID"`

	UploadDir         string `mapstructure:"UPLOAD_DIR"`
	UploadMaxBytes    int64  `mapstructure:"UPLOAD_MAX_BYTES"`
	S3BucketName      string `mapstructure:"S3_BUCKET_NAME"`
	S3Region          string `mapstructure:"S3_REGION"`
	S3EndpointURL     string `mapstructure:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `mapstructure:"S3_SECRET_ACCESS_KEY"`
	S3PublicBaseURL   string `mapstructure:"S3_PUBLIC_BASE_URL"`

	CheckoutRatePerMinute int           `mapstructure:"CHECKOUT_RATE_PER_MINUTE"`
	ReadTimeout           time.Duration `mapstructure:"READ_TIMEOUT"`
	WriteTimeout          time.Duration `mapstructure:"WRITE_TIMEOUT"`
}

var envKeys = []string{
	"PORT", "GIN_MODE", "LOG_LEVEL",
	"CLIENT_URL", "APP_URL", "ADMIN_EMAIL",
	"FIREBASE_PROJECT_ID", "GOOGLE_APPLICATION_CREDENTIALS", "FIREBASE_SERVICE_ACCOUNT_JSON_BASE64",
	"SUPABASE_URL", "SUPABASE_SERVICE_ROLE_KEY", "DATABASE_URL", "DATABASE_AUTO_MIGRATE",
	"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET", "STRIPE_PRICE_ID",
	"UPLOAD_DIR", "UPLOAD_MAX_BYTES",
	"S3_BUCKET_NAME", "S3_REGION", "S3_ENDPOINT_URL", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "S3_PUBLIC_BASE_URL",
	"CHECKOUT_RATE_PER_MINUTE", "READ_TIMEOUT", "WRITE_TIMEOUT",
}

// LoadConfig loads configuration from environment variables using Viper.
// Every backend is optional; with nothing configured the service runs in
// catalog-only mode.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_URL", "http://localhost:3000")
	v.SetDefault("DATABASE_AUTO_MIGRATE", true)
	v.SetDefault("UPLOAD_DIR", "public/uploads")
	v.SetDefault("UPLOAD_MAX_BYTES", 100*1024*1024)
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("CHECKOUT_RATE_PER_MINUTE", 10)
	v.SetDefault("READ_TIMEOUT", "15s")
	v.SetDefault("WRITE_TIMEOUT", "30s")

	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}
	cfg.AdminEmail = strings.TrimSpace(cfg.AdminEmail)
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.GinMode) {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("GIN_MODE must be one of debug, release, test; got %q", c.GinMode)
	}

	supabaseParts := 0
	for _, s := range []string{c.SupabaseURL, c.SupabaseServiceRoleKey, c.DatabaseURL} {
		if s != "" {
			supabaseParts++
		}
	}
	if supabaseParts > 0 && supabaseParts < 3 && c.FirebaseProjectID == "" {
		return errors.New("SUPABASE_URL, SUPABASE_SERVICE_ROLE_KEY and DATABASE_URL must be set together")
	}

	if c.StripeSecretKey != "" && c.StripeWebhookSecret == "" {
		return errors.New("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set")
	}
	if c.UploadMaxBytes <= 0 {
		return errors.New("UPLOAD_MAX_BYTES must be positive")
	}
	if c.CheckoutRatePerMinute <= 0 {
		return errors.New("CHECKOUT_RATE_PER_MINUTE must be positive")
	}
	if c.S3BucketName != "" && c.S3PublicBaseURL == "" {
		return errors.New("S3_PUBLIC_BASE_URL is required when S3_BUCKET_NAME is set")
	}
	return nil
}

// Backend reports which identity/profile stack to construct. The relational
// stack wins when both are configured; exactly one is ever active.
func (c *Config) Backend() Backend {
	if c.SupabaseURL != "" && c.SupabaseServiceRoleKey != "" && c.DatabaseURL != "" {
		return BackendRelational
	}
	if c.FirebaseProjectID != "" {
		return BackendDocument
	}
	return BackendNone
}

// PaymentsEnabled reports whether a Stripe secret key is configured.
func (c *Config) PaymentsEnabled() bool {
	return c.StripeSecretKey != ""
}

// IsRelease reports whether the service runs in release mode.
func (c *Config) IsRelease() bool {
	return strings.EqualFold(c.GinMode, "release")
}

// AllowedOrigins lists the browser origins allowed by CORS and as checkout
// return URLs: every comma-separated CLIENT_URL entry plus APP_URL.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	seen := map[string]bool{}
	for _, raw := range append(strings.Split(c.ClientURL, ","), c.AppURL) {
		origin := strings.TrimRight(strings.TrimSpace(raw), "/")
		if origin == "" || seen[origin] {
			continue
		}
		seen[origin] = true
		origins = append(origins, origin)
	}
	return origins
}
