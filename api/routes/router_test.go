package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/rosterhub-backend/internal/audit"
	"github.com/angelmondragon/rosterhub-backend/internal/notifications"
	"github.com/angelmondragon/rosterhub-backend/internal/preferences"
	"github.com/angelmondragon/rosterhub-backend/internal/realtime"
	pkgAuth "github.com/angelmondragon/rosterhub-backend/pkg/auth"
	"github.com/angelmondragon/rosterhub-backend/pkg/config"
	"github.com/angelmondragon/rosterhub-backend/pkg/db/models"
	"github.com/angelmondragon/rosterhub-backend/pkg/logger"
	"github.com/angelmondragon/rosterhub-backend/pkg/metrics"
	"github.com/angelmondragon/rosterhub-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubNotificationsService struct {
	lastOwner string
}

func (s *stubNotificationsService) Insert(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	return n, nil
}

func (s *stubNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	s.lastOwner = params.OwnerID
	return &notifications.ListResult{Items: []notifications.Item{}}, nil
}

func (s *stubNotificationsService) UnreadCount(ctx context.Context, ownerID string) (int64, error) {
	s.lastOwner = ownerID
	return 2, nil
}

func (s *stubNotificationsService) SetRead(ctx context.Context, ownerID string, id uuid.UUID, read bool) error {
	s.lastOwner = ownerID
	return nil
}

func (s *stubNotificationsService) SetAllRead(ctx context.Context, ownerID string) (int64, error) {
	s.lastOwner = ownerID
	return 0, nil
}

func (s *stubNotificationsService) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	s.lastOwner = ownerID
	return nil
}

type stubPreferencesService struct{}

func (stubPreferencesService) Get(ctx context.Context, userID string) (preferences.Set, error) {
	return preferences.Set{UserID: userID}, nil
}

func (stubPreferencesService) Update(ctx context.Context, userID string, patch preferences.Patch) (preferences.Set, error) {
	return preferences.Set{UserID: userID, Stored: true}, nil
}

type stubAuditService struct {
	audit.Service
	lastScope string
}

func (s *stubAuditService) ListByScope(ctx context.Context, scope string, filters audit.Filters, page pagination.Params) (*audit.ListResult, error) {
	s.lastScope = scope
	return &audit.ListResult{Items: []audit.Record{}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", Port: "8080", CORSOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{
			Secret:            "router-secret",
			Issuer:            "rosterhub-identity",
			ExpirationMinutes: 10,
		},
		Realtime: config.RealtimeConfig{PingInterval: time.Minute, SendBuffer: 8},
	}
}

type testDeps struct {
	notifications *stubNotificationsService
	audit         *stubAuditService
}

func newTestRouter(cfg *config.Config) (http.Handler, testDeps) {
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	deps := testDeps{notifications: &stubNotificationsService{}, audit: &stubAuditService{}}
	reg := prometheus.NewRegistry()
	hub := realtime.NewHub(logg, metrics.NewNotificationMetrics(reg))
	router := NewRouter(
		cfg,
		logg,
		stubPinger{},
		stubPinger{},
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		deps.notifications,
		stubPreferencesService{},
		deps.audit,
		hub,
	)
	return router, deps
}

func buildToken(t *testing.T, cfg *config.Config, userID, teamID string) string {
	t.Helper()
	token, err := pkgAuth.MintIdentityToken(cfg.JWT, time.Now(), pkgAuth.Identity{UserID: userID, TeamID: teamID})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthRoutesArePublic(t *testing.T) {
	router, _ := newTestRouter(testConfig())
	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}

func TestMetricsRouteServesRegistry(t *testing.T) {
	router, _ := newTestRouter(testConfig())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for metrics got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "realtime_subscribers") {
		t.Fatalf("expected realtime gauge in metrics output; body=%s", resp.Body.String())
	}
}

func TestAPIRoutesRequireToken(t *testing.T) {
	router, _ := newTestRouter(testConfig())
	cases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/notifications"},
		{http.MethodGet, "/api/v1/notifications/unread-count"},
		{http.MethodPost, "/api/v1/notifications/read-all"},
		{http.MethodPost, "/api/v1/notifications/" + uuid.NewString() + "/read"},
		{http.MethodDelete, "/api/v1/notifications/" + uuid.NewString()},
		{http.MethodGet, "/api/v1/preferences"},
		{http.MethodGet, "/api/v1/activity"},
	}
	for _, tc := range cases {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(tc.method, tc.path, nil))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s %s got %d", tc.method, tc.path, resp.Code)
		}
	}
}

func TestNotificationsScopedToTokenSubject(t *testing.T) {
	cfg := testConfig()
	router, deps := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/unread-count", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, "user-42", "team-1"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if deps.notifications.lastOwner != "user-42" {
		t.Fatalf("expected owner from token subject, got %q", deps.notifications.lastOwner)
	}
}

func TestMarkUnreadRoute(t *testing.T) {
	cfg := testConfig()
	router, deps := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/"+uuid.NewString()+"/unread", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, "user-7", ""))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if deps.notifications.lastOwner != "user-7" {
		t.Fatalf("unexpected owner %q", deps.notifications.lastOwner)
	}
}

func TestActivityScopedToTokenTeam(t *testing.T) {
	cfg := testConfig()
	router, deps := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/activity?search=striker", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, "user-1", "team-3"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if deps.audit.lastScope != "team-3" {
		t.Fatalf("expected team scope from token, got %q", deps.audit.lastScope)
	}
}

func TestActivityWithoutTeamIsForbidden(t *testing.T) {
	cfg := testConfig()
	router, _ := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/activity", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, "user-1", ""))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestPreferencesPatchRoute(t *testing.T) {
	cfg := testConfig()
	router, _ := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/preferences", strings.NewReader(`{"loginNotifications":false}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, "user-1", ""))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}
