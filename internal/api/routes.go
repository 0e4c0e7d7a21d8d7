package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"audiostory-backend-go/internal/auth"
	"audiostory-backend-go/internal/config"
	"audiostory-backend-go/internal/core"
	"audiostory-backend-go/internal/middleware"
)

// Dependencies are the services the routes are built from. Identity, Users,
// Billing, Stories and Uploads are nil when no backend is configured; only
// the public catalog is served then.
type Dependencies struct {
	Config   *config.Config
	Logger   *zap.Logger
	Identity auth.IdentityProvider
	Users    core.UserService
	Billing  core.BillingService
	Stories  core.StoryService
	Catalog  core.CatalogService
	Uploads  core.UploadService
	// UploadDir is served at /uploads when files are stored locally.
	UploadDir string
}

// SetupRoutes configures all the application routes with their handlers and middleware.
// Global middleware (logging, recovery, CORS, metrics) is applied by the caller.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	logger := deps.Logger
	if err := RegisterValidators(); err != nil {
		logger.Fatal("Failed to register request validators", zap.Error(err))
	}

	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		if c.Writer.Header().Get("Allow") == "" {
			if allowed := allowedMethods(router.Routes(), c.Request.URL.Path); len(allowed) > 0 {
				c.Header("Allow", strings.Join(allowed, ", "))
			}
		}
		c.JSON(http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not found"})
	})

	catalogHandler := NewCatalogHandler(deps.Catalog, logger)

	var authMW *middleware.AuthMiddleware
	if deps.Identity != nil {
		authMW = middleware.NewAuthMiddleware(deps.Identity, logger)
	}
	// Public routes still resolve the caller's tier when a token is sent.
	var optionalAuth gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if authMW != nil {
		optionalAuth = authMW.OptionalAuth()
	}

	apiV1 := router.Group("/api/v1")
	{
		// --- Public catalog ---
		apiV1.GET("/stories", optionalAuth, catalogHandler.ListStories)
		apiV1.GET("/stories/:id", optionalAuth, catalogHandler.GetStory)
		apiV1.GET("/stories/:id/episodes", optionalAuth, catalogHandler.ListEpisodes)
		apiV1.GET("/categories", optionalAuth, catalogHandler.ListCategories)
	}

	if authMW != nil {
		authHandler := NewAuthHandler(deps.Users, logger)
		userHandler := NewUserHandler(deps.Users, logger)

		usersGroup := apiV1.Group("/users", authMW.VerifyToken())
		{
			usersGroup.POST("/initialize", authHandler.InitializeUserProfile)
			usersGroup.GET("/me", userHandler.GetCurrentUserProfile)
			usersGroup.PATCH("/me", userHandler.UpdateCurrentUserProfile)
			usersGroup.PUT("/me/favorites/:storyId", userHandler.AddFavorite)
			usersGroup.DELETE("/me/favorites/:storyId", userHandler.RemoveFavorite)
			usersGroup.PUT("/me/progress/:storyId", userHandler.RecordProgress)
		}

		adminHandler := NewAdminHandler(deps.Stories, deps.Users, logger)
		uploadHandler := NewUploadHandler(deps.Uploads, deps.Config.UploadMaxBytes, logger)

		adminGroup := apiV1.Group("/admin", authMW.VerifyToken(), middleware.AdminOnly(deps.Config.AdminEmail, logger))
		{
			adminGroup.GET("/stories", adminHandler.ListStories)
			adminGroup.POST("/stories", adminHandler.CreateStory)
			adminGroup.GET("/stories/:id", adminHandler.GetStory)
			adminGroup.PUT("/stories/:id", adminHandler.UpdateStory)
			adminGroup.DELETE("/stories/:id", adminHandler.DeleteStory)

			adminGroup.GET("/users", adminHandler.ListUsers)
			adminGroup.PATCH("/users", adminHandler.SetUserTier)
			adminGroup.DELETE("/users", adminHandler.DeleteUser)

			adminGroup.POST("/upload", uploadHandler.Upload)
		}

		if deps.Billing != nil {
			billingHandler := NewBillingHandler(deps.Billing, logger)
			checkoutLimit := middleware.NewRateLimiter(deps.Config.CheckoutRatePerMinute, logger).Middleware()

			billingGroup := apiV1.Group("/billing")
			{
				billingGroup.POST("/create-checkout-session", authMW.VerifyToken(), checkoutLimit, billingHandler.CreateCheckoutSession)
				billingGroup.POST("/create-portal-session", authMW.VerifyToken(), billingHandler.CreatePortalSession)
				// Stripe authenticates webhooks by signature, not bearer token.
				billingGroup.POST("/webhooks/stripe", billingHandler.HandleStripeWebhook)
			}

			// Paths used by earlier web clients and the Stripe dashboard.
			router.POST("/api/create-checkout-session", authMW.VerifyToken(), checkoutLimit, billingHandler.CreateCheckoutSession)
			router.POST("/api/stripe/webhook", billingHandler.HandleStripeWebhook)
		}
	} else {
		logger.Warn("No backend configured; serving the static catalog only")
	}

	if deps.UploadDir != "" {
		router.Static("/uploads", deps.UploadDir)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "backend": string(deps.Config.Backend())})
	})

	logger.Info("API routes configured", zap.String("backend", string(deps.Config.Backend())))
}

// allowedMethods lists the methods registered for routes matching path.
func allowedMethods(routes gin.RoutesInfo, path string) []string {
	seen := map[string]bool{}
	var methods []string
	for _, route := range routes {
		if !seen[route.Method] && matchRoute(route.Path, path) {
			seen[route.Method] = true
			methods = append(methods, route.Method)
		}
	}
	sort.Strings(methods)
	return methods
}

// matchRoute reports whether path fits a gin route template with :param and
// *wildcard segments.
func matchRoute(template, path string) bool {
	want := strings.Split(strings.Trim(template, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	for i, segment := range want {
		if strings.HasPrefix(segment, "*") {
			return true
		}
		if i >= len(got) {
			return false
		}
		if strings.HasPrefix(segment, ":") {
			if got[i] == "" {
				return false
			}
			continue
		}
		if segment != got[i] {
			return false
		}
	}
	return len(want) == len(got)
}
