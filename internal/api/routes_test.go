package api

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	"audiostory-backend-go/internal/config"
	"audiostory-backend-go/internal/core"
	"audiostory-backend-go/internal/db"
	"audiostory-backend-go/internal/models"
	"audiostory-backend-go/internal/storage"
)

const testWebhookSecret = "whsec_api_test"

type testEnv struct {
	router    *gin.Engine
	profiles  *memProfiles
	identity  *tokenProvider
	uploadDir string
}

func freeProfile(id string, tier models.Tier) *models.UserProfile {
	return &models.UserProfile{
		ID:               id,
		Email:            id + "@example.com",
		SubscriptionTier: tier,
		FavoriteStoryIDs: []string{},
		Progress:         []models.ListeningProgress{},
		CreatedAt:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	profiles := newMemProfiles(freeProfile("listener", models.TierFree), freeProfile("subscriber", models.TierPremium))
	identity := &tokenProvider{identities: map[string]*models.Identity{
		"listener-token":   {UserID: "listener", Email: "listener@example.com", EmailVerified: true},
		"subscriber-token": {UserID: "subscriber", Email: "subscriber@example.com", EmailVerified: true},
		"admin-token":      {UserID: "admin", Email: "Admin@Example.com", EmailVerified: true},
		"newcomer-token":   {UserID: "newcomer", Email: "new@example.com", DisplayName: "New"},
	}}

	catalog := db.NewStaticCatalog()
	uploadDir := t.TempDir()
	store, err := storage.NewLocalStore(uploadDir, "/uploads", logger)
	require.NoError(t, err)

	cfg := &config.Config{
		AppURL:                "https://app.example.com",
		AdminEmail:            "admin@example.com",
		FirebaseProjectID:     "test-project",
		UploadMaxBytes:        4096,
		CheckoutRatePerMinute: 2,
	}

	router := gin.New()
	SetupRoutes(router, Dependencies{
		Config:   cfg,
		Logger:   logger,
		Identity: identity,
		Users:    core.NewUserService(profiles, catalog, identity, logger),
		Billing: core.NewBillingService(profiles, &stubPayments{secret: testWebhookSecret}, core.BillingConfig{
			PriceID: "price_test",
			AppURL:  cfg.AppURL,
		}, logger),
		Stories:   core.NewStoryService(catalog, logger),
		Catalog:   core.NewCatalogService(catalog, catalog, profiles, logger),
		Uploads:   core.NewUploadService(store, cfg.UploadMaxBytes, logger),
		UploadDir: uploadDir,
	})
	return &testEnv{router: router, profiles: profiles, identity: identity, uploadDir: uploadDir}
}

func (e *testEnv) do(method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doJSON(method, path, token, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return e.do(method, path, token, r, "application/json")
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestCatalogFiltersByTier(t *testing.T) {
	env := newTestEnv(t)

	var anonymous StoriesResponse
	w := env.doJSON(http.MethodGet, "/api/v1/stories", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &anonymous)
	assert.Len(t, anonymous.Stories, 3)
	for _, s := range anonymous.Stories {
		assert.False(t, s.IsPremium)
	}

	var free StoriesResponse
	w = env.doJSON(http.MethodGet, "/api/v1/stories", "listener-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &free)
	assert.Len(t, free.Stories, 3)

	var premium StoriesResponse
	w = env.doJSON(http.MethodGet, "/api/v1/stories", "subscriber-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &premium)
	assert.Len(t, premium.Stories, 6)

	w = env.doJSON(http.MethodGet, "/api/v1/stories", "garbage-token", "")
	assert.Equal(t, http.StatusOK, w.Code, "an invalid token on a public route is treated as anonymous")
}

func TestCatalogLocksPremiumStory(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(http.MethodGet, "/api/v1/stories/forbidden-desire", "listener-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	var locked map[string]map[string]interface{}
	decode(t, w, &locked)
	assert.Equal(t, true, locked["story"]["locked"])
	assert.NotContains(t, locked["story"], "audioUrl")

	w = env.doJSON(http.MethodGet, "/api/v1/stories/forbidden-desire", "subscriber-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	var open map[string]map[string]interface{}
	decode(t, w, &open)
	assert.Equal(t, false, open["story"]["locked"])
	assert.Equal(t, "#", open["story"]["audioUrl"])

	w = env.doJSON(http.MethodGet, "/api/v1/stories/no-such-story", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Story not found")
}

func TestCatalogEpisodesAndCategories(t *testing.T) {
	env := newTestEnv(t)

	var episodes EpisodesResponse
	w := env.doJSON(http.MethodGet, "/api/v1/stories/forbidden-desire/episodes", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &episodes)
	require.Len(t, episodes.Episodes, 5)
	for _, e := range episodes.Episodes {
		assert.True(t, e.Locked)
		assert.Empty(t, e.AudioURL)
	}

	var categories CategoriesResponse
	w = env.doJSON(http.MethodGet, "/api/v1/categories", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &categories)
	assert.Len(t, categories.Categories, 4)
	for _, c := range categories.Categories {
		assert.NotNil(t, c.Stories)
		for _, s := range c.Stories {
			assert.False(t, s.IsPremium)
		}
	}
}

func TestSelfServiceProfile(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(http.MethodGet, "/api/v1/users/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.doJSON(http.MethodPost, "/api/v1/users/initialize", "newcomer-token", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = env.doJSON(http.MethodPost, "/api/v1/users/initialize", "newcomer-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	var initialized InitializeUserResponse
	decode(t, w, &initialized)
	assert.False(t, initialized.Created)
	assert.Equal(t, models.TierFree, initialized.Profile.SubscriptionTier)

	w = env.doJSON(http.MethodPatch, "/api/v1/users/me", "newcomer-token", `{"displayName":"  Newer  "}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.UserProfile
	decode(t, w, &updated)
	assert.Equal(t, "Newer", updated.DisplayName)

	w = env.doJSON(http.MethodPatch, "/api/v1/users/me", "newcomer-token", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.doJSON(http.MethodPatch, "/api/v1/users/me", "newcomer-token", `{"subscriptionTier":"premium"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "tier is not writable by the owner")
	p, _ := env.profiles.get("newcomer")
	assert.Equal(t, models.TierFree, p.SubscriptionTier)
}

func TestFavoritesAndProgress(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(http.MethodPut, "/api/v1/users/me/favorites/memory-hack", "listener-token", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var profile models.UserProfile
	decode(t, w, &profile)
	assert.Equal(t, []string{"memory-hack"}, profile.FavoriteStoryIDs)

	w = env.doJSON(http.MethodPut, "/api/v1/users/me/favorites/no-such-story", "listener-token", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.doJSON(http.MethodDelete, "/api/v1/users/me/favorites/memory-hack", "listener-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &profile)
	assert.Empty(t, profile.FavoriteStoryIDs)

	w = env.doJSON(http.MethodPut, "/api/v1/users/me/progress/memory-hack", "listener-token", `{"positionSeconds":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.doJSON(http.MethodPut, "/api/v1/users/me/progress/memory-hack", "listener-token", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.doJSON(http.MethodPut, "/api/v1/users/me/progress/memory-hack", "listener-token", `{"positionSeconds":12.5}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &profile)
	require.Len(t, profile.Progress, 1)
	assert.Equal(t, 12.5, profile.Progress[0].PositionSeconds)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	env := newTestEnv(t)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/admin/stories"},
		{http.MethodGet, "/api/v1/admin/users"},
		{http.MethodPost, "/api/v1/admin/upload"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, env.doJSON(p.method, p.path, "", "").Code)
			assert.Equal(t, http.StatusUnauthorized, env.doJSON(p.method, p.path, "garbage-token", "").Code)

			w := env.doJSON(p.method, p.path, "listener-token", "")
			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Contains(t, w.Body.String(), "Admin access required")
		})
	}

	w := env.doJSON(http.MethodGet, "/api/v1/admin/stories", "admin-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stories AdminStoriesResponse
	decode(t, w, &stories)
	assert.Len(t, stories.Stories, 6)
}

func TestAdminStories(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(http.MethodGet, "/api/v1/admin/stories/forbidden-desire", "admin-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	var story AdminStoryResponse
	decode(t, w, &story)
	assert.Equal(t, "#", story.Story.AudioURL)

	w = env.doJSON(http.MethodGet, "/api/v1/admin/stories/no-such-story", "admin-token", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.doJSON(http.MethodPost, "/api/v1/admin/stories", "admin-token", `{"title":"Untitled"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.doJSON(http.MethodPost, "/api/v1/admin/stories", "admin-token",
		`{"title":"New","author":"A","audioUrl":"/uploads/audio/a.mp3"}`)
	assert.Equal(t, http.StatusConflict, w.Code, "the fallback catalog is read-only")
}

func TestAdminUsers(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(http.MethodGet, "/api/v1/admin/users", "admin-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	var users AdminUsersResponse
	decode(t, w, &users)
	assert.Len(t, users.Users, 2)

	w = env.doJSON(http.MethodPatch, "/api/v1/admin/users", "admin-token", `{"uid":"listener"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing uid or subscriptionTier")

	w = env.doJSON(http.MethodPatch, "/api/v1/admin/users", "admin-token", `{"uid":"listener","subscriptionTier":"gold"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.doJSON(http.MethodPatch, "/api/v1/admin/users", "admin-token", `{"uid":"ghost","subscriptionTier":"premium"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.doJSON(http.MethodPatch, "/api/v1/admin/users", "admin-token", `{"uid":"listener","subscriptionTier":"premium"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	p, _ := env.profiles.get("listener")
	assert.Equal(t, models.TierPremium, p.SubscriptionTier)

	w = env.doJSON(http.MethodDelete, "/api/v1/admin/users", "admin-token", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing uid")

	w = env.doJSON(http.MethodDelete, "/api/v1/admin/users", "admin-token", `{"uid":"listener"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"listener"}, env.identity.deleted)
	_, exists := env.profiles.get("listener")
	assert.False(t, exists)
}

func multipartUpload(t *testing.T, kind, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if kind != "" {
		require.NoError(t, mw.WriteField("type", kind))
	}
	if content != nil {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func pngBytes(size int) []byte {
	b := make([]byte, size)
	copy(b, "\x89PNG\r\n\x1a\n")
	return b
}

func TestUploadStoresCover(t *testing.T) {
	env := newTestEnv(t)

	body, ct := multipartUpload(t, "cover", "art.png", pngBytes(256))
	w := env.do(http.MethodPost, "/api/v1/admin/upload", "admin-token", body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result models.UploadResult
	decode(t, w, &result)
	assert.True(t, result.Success)
	assert.Equal(t, "cover", result.Type)
	assert.Equal(t, int64(256), result.Size)
	assert.True(t, strings.HasPrefix(result.URL, "/uploads/images/cover_"), result.URL)
	assert.True(t, strings.HasSuffix(result.Filename, ".png"), result.Filename)

	_, err := os.Stat(filepath.Join(env.uploadDir, "images", result.Filename))
	assert.NoError(t, err)

	w = env.do(http.MethodGet, result.URL, "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code, "stored files are served under /uploads")
}

func TestUploadRejections(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		kind     string
		filename string
		content  []byte
		status   int
		message  string
	}{
		{name: "text as cover", kind: "cover", filename: "art.png", content: []byte("plain text, not an image"), status: http.StatusBadRequest, message: "Cover must be an image file"},
		{name: "audio as cover", kind: "cover", filename: "track.mp3", content: append([]byte("ID3\x03\x00\x00\x00\x00\x00\x00"), make([]byte, 64)...), status: http.StatusBadRequest, message: "Cover must be an image file"},
		{name: "image as audio", kind: "audio", filename: "track.mp3", content: pngBytes(64), status: http.StatusBadRequest, message: "Audio file required"},
		{name: "no file", kind: "cover", status: http.StatusBadRequest, message: "No file uploaded"},
		{name: "unknown type", kind: "video", filename: "art.png", content: pngBytes(64), status: http.StatusBadRequest, message: "Invalid upload type"},
		{name: "missing type", filename: "art.png", content: pngBytes(64), status: http.StatusBadRequest, message: "Invalid upload type"},
		{name: "over the size limit", kind: "cover", filename: "art.png", content: pngBytes(5000), status: http.StatusRequestEntityTooLarge, message: "File too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartUpload(t, tt.kind, tt.filename, tt.content)
			w := env.do(http.MethodPost, "/api/v1/admin/upload", "admin-token", body, ct)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), tt.message)
		})
	}

	entries, err := os.ReadDir(env.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected uploads leave nothing behind")
}

func TestCheckoutSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(http.MethodPost, "/api/v1/billing/create-checkout-session", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.doJSON(http.MethodPost, "/api/v1/billing/create-checkout-session", "listener-token", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var session CheckoutSessionResponse
	decode(t, w, &session)
	assert.Equal(t, "https://checkout.example.com/cs_test", session.CheckoutURL)
	p, _ := env.profiles.get("listener")
	assert.Equal(t, "cus_listener", p.StripeCustomerID)

	w = env.doJSON(http.MethodPost, "/api/create-checkout-session", "listener-token", "")
	assert.Equal(t, http.StatusOK, w.Code, "legacy path shares the handler")

	w = env.doJSON(http.MethodPost, "/api/v1/billing/create-checkout-session", "listener-token", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	w = env.doJSON(http.MethodPost, "/api/v1/billing/create-checkout-session", "newcomer-token", "")
	assert.Equal(t, http.StatusNotFound, w.Code, "checkout needs an initialized profile")
}

func TestPortalSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(http.MethodPost, "/api/v1/billing/create-portal-session", "listener-token", "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "no customer linked yet")

	require.Equal(t, http.StatusOK, env.doJSON(http.MethodPost, "/api/v1/billing/create-checkout-session", "listener-token", "").Code)
	w = env.doJSON(http.MethodPost, "/api/v1/billing/create-portal-session", "listener-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	var portal PortalSessionResponse
	decode(t, w, &portal)
	assert.Equal(t, "https://billing.example.com/session", portal.URL)
}

func signedWebhook(eventType, object string) ([]byte, string) {
	payload := []byte(fmt.Sprintf(`{"id":"evt_%d","type":%q,"data":{"object":%s}}`, time.Now().UnixNano(), eventType, object))
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return payload, signed.Header
}

func (e *testEnv) postWebhook(path string, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestStripeWebhook(t *testing.T) {
	env := newTestEnv(t)
	const path = "/api/v1/billing/webhooks/stripe"

	payload, signature := signedWebhook("checkout.session.completed",
		`{"id":"cs_1","customer":"cus_listener","subscription":"sub_1","metadata":{"userId":"listener"}}`)

	w := env.postWebhook(path, payload, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing webhook signature")

	w = env.postWebhook(path, payload, "t=1,v1=deadbeef")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	p, _ := env.profiles.get("listener")
	assert.Equal(t, models.TierFree, p.SubscriptionTier, "unverified events change nothing")

	w = env.postWebhook(path, payload, signature)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result WebhookResponse
	decode(t, w, &result)
	assert.True(t, result.Received)
	assert.Equal(t, core.OutcomeApplied, result.Outcome)
	p, _ = env.profiles.get("listener")
	assert.Equal(t, models.TierPremium, p.SubscriptionTier)

	w = env.postWebhook("/api/stripe/webhook", payload, signature)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &result)
	assert.Equal(t, core.OutcomeDuplicate, result.Outcome)

	payload, signature = signedWebhook("customer.subscription.deleted", `{"id":"sub_1","customer":"cus_listener","status":"canceled"}`)
	w = env.postWebhook(path, payload, signature)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	p, _ = env.profiles.get("listener")
	assert.Equal(t, models.TierFree, p.SubscriptionTier)

	payload, signature = signedWebhook("invoice.paid", `{"id":"in_1"}`)
	w = env.postWebhook(path, payload, signature)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &result)
	assert.Equal(t, core.OutcomeIgnored, result.Outcome)
}

func TestCheckoutThroughCancellation(t *testing.T) {
	env := newTestEnv(t)
	const path = "/api/v1/billing/webhooks/stripe"

	w := env.doJSON(http.MethodPost, "/api/v1/billing/create-checkout-session", "listener-token", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	p, _ := env.profiles.get("listener")
	require.Equal(t, "cus_listener", p.StripeCustomerID)

	payload, signature := signedWebhook("checkout.session.completed",
		`{"id":"cs_1","customer":"cus_listener","subscription":"sub_2","metadata":{"userId":"listener"}}`)
	require.Equal(t, http.StatusOK, env.postWebhook(path, payload, signature).Code)
	p, _ = env.profiles.get("listener")
	assert.Equal(t, models.TierPremium, p.SubscriptionTier)
	assert.Equal(t, "sub_2", p.StripeSubscriptionID)

	// A cancellation for some other subscription leaves the grant alone.
	payload, signature = signedWebhook("customer.subscription.deleted", `{"id":"sub_old","customer":"cus_listener"}`)
	require.Equal(t, http.StatusOK, env.postWebhook(path, payload, signature).Code)
	p, _ = env.profiles.get("listener")
	assert.Equal(t, models.TierPremium, p.SubscriptionTier)

	payload, signature = signedWebhook("customer.subscription.deleted", `{"id":"sub_2","customer":"cus_listener"}`)
	require.Equal(t, http.StatusOK, env.postWebhook(path, payload, signature).Code)
	p, _ = env.profiles.get("listener")
	assert.Equal(t, models.TierFree, p.SubscriptionTier)
	assert.Empty(t, p.StripeSubscriptionID)

	var stories StoriesResponse
	w = env.doJSON(http.MethodGet, "/api/v1/stories", "listener-token", "")
	decode(t, w, &stories)
	assert.Len(t, stories.Stories, 3, "free again after cancellation")
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(http.MethodDelete, "/api/v1/stories", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Header().Get("Allow"), http.MethodGet)

	w = env.doJSON(http.MethodPost, "/api/v1/admin/users", "admin-token", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	allow := w.Header().Get("Allow")
	for _, m := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
		assert.Contains(t, allow, m)
	}

	w = env.doJSON(http.MethodGet, "/api/v1/nothing-here", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCatalogOnlyWithoutBackend(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	catalog := db.NewStaticCatalog()
	router := gin.New()
	SetupRoutes(router, Dependencies{
		Config:  &config.Config{UploadMaxBytes: 1024, CheckoutRatePerMinute: 1},
		Logger:  logger,
		Catalog: core.NewCatalogService(catalog, catalog, nil, logger),
	})
	env := &testEnv{router: router}

	w := env.doJSON(http.MethodGet, "/api/v1/stories", "any-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stories StoriesResponse
	decode(t, w, &stories)
	assert.Len(t, stories.Stories, 3)

	assert.Equal(t, http.StatusNotFound, env.doJSON(http.MethodGet, "/api/v1/users/me", "any-token", "").Code)
	assert.Equal(t, http.StatusNotFound, env.doJSON(http.MethodPost, "/api/v1/billing/webhooks/stripe", "", "").Code)

	w = env.doJSON(http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"backend":"none"`)
}

func TestMatchRoute(t *testing.T) {
	tests := []struct {
		template, path string
		want           bool
	}{
		{"/api/v1/stories", "/api/v1/stories", true},
		{"/api/v1/stories/:id", "/api/v1/stories/abc", true},
		{"/api/v1/stories/:id", "/api/v1/stories", false},
		{"/api/v1/stories/:id/episodes", "/api/v1/stories/abc", false},
		{"/uploads/*filepath", "/uploads/images/a.png", true},
		{"/health", "/metrics", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchRoute(tt.template, tt.path), "%s vs %s", tt.template, tt.path)
	}
}
