package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"audiostory-backend-go/internal/api"
	"audiostory-backend-go/internal/config"
	"audiostory-backend-go/internal/core"
	"audiostory-backend-go/internal/middleware"
	"audiostory-backend-go/internal/payments"
)

func main() {
	// --- 1. Load .env outside release mode ---
	if os.Getenv("GIN_MODE") != "release" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file loaded:", err)
		}
	}

	// --- 2. Load Application Configuration ---
	appConfig, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to load application configuration: %v", err)
	}

	// --- 3. Initialize Logger (Zap) ---
	zapLogger, err := newLogger(appConfig)
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Application configuration loaded", zap.String("backend", string(appConfig.Backend())))

	// --- 4. Connect the backend and file store ---
	initCtx, cancelInitCtx := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelInitCtx()

	be, err := openBackend(initCtx, appConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize backend", zap.Error(err))
	}
	defer be.Close()

	fileStore, uploadDir, err := openFileStore(initCtx, appConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize file store", zap.Error(err))
	}
	zapLogger.Info("File store ready", zap.String("store", fileStore.Name()))

	// --- 5. Payments ---
	var paymentProvider payments.Provider
	if appConfig.PaymentsEnabled() {
		stripeProvider, err := payments.NewStripeProvider(appConfig.StripeSecretKey, appConfig.StripeWebhookSecret, zapLogger)
		if err != nil {
			zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Stripe", zap.Error(err))
		}
		paymentProvider = stripeProvider
	} else {
		zapLogger.Warn("STRIPE_SECRET_KEY is not set; billing endpoints will report payments as unconfigured")
	}

	// --- 6. Initialize Services ---
	deps := api.Dependencies{
		Config:  appConfig,
		Logger:  zapLogger,
		Catalog: core.NewCatalogService(be.stories, be.catalog, be.profiles, zapLogger),
	}
	if be.identity != nil {
		deps.Identity = be.identity
		deps.Users = core.NewUserService(be.profiles, be.stories, be.identity, zapLogger)
		deps.Billing = core.NewBillingService(be.profiles, paymentProvider, core.BillingConfig{
			PriceID:        appConfig.StripePriceID,
			AppURL:         appConfig.AppURL,
			AllowedOrigins: appConfig.AllowedOrigins(),
		}, zapLogger)
		deps.Stories = core.NewStoryService(be.stories, zapLogger)
		deps.Uploads = core.NewUploadService(fileStore, appConfig.UploadMaxBytes, zapLogger)
		deps.UploadDir = uploadDir
	}

	// --- 7. Setup Gin HTTP Engine ---
	if appConfig.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware(appConfig.AllowedOrigins()))
	router.Use(middleware.Metrics())

	api.SetupRoutes(router, deps)

	// --- 8. Configure and Start HTTP Server ---
	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadTimeout:       appConfig.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      appConfig.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		zapLogger.Info("Starting HTTP server", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// --- 9. Graceful Shutdown Handling ---
	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("Server exiting gracefully.")
}

// newLogger builds a production logger in release mode and a development
// logger otherwise, at LOG_LEVEL.
func newLogger(appConfig *config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(appConfig.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", appConfig.LogLevel, err)
	}
	zapConfig := zap.NewDevelopmentConfig()
	if appConfig.IsRelease() {
		zapConfig = zap.NewProductionConfig()
	}
	zapConfig.Level = level
	return zapConfig.Build()
}
