package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"cookieboy-api/internal/catalog"
	"cookieboy-api/internal/handler"
	"cookieboy-api/internal/metrics"
	"cookieboy-api/internal/middleware"
	"cookieboy-api/internal/repository"
	"cookieboy-api/internal/service"

	"github.com/stretchr/testify/assert"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	repo := repository.NewMemoryEconomyRepository()
	cat := catalog.Default()
	m := metrics.New()
	svc := service.NewEconomyService(repo, cat, service.DefaultEconomyConfig(), service.WithRecorder(m))
	ranking := service.NewRankingService(svc, nil, 0)

	return New(Config{
		Handler:           handler.New("test", nil),
		EconomyHandler:    handler.NewEconomyHandler(svc, ranking, cat, 5),
		AdminHandler:      handler.NewAdminHandler(svc, nil, "memory", "none"),
		MetricsHandler:    m.Handler(),
		MetricsMiddleware: m.Middleware,
		AuthMiddleware:    middleware.NewAuthMiddleware(middleware.AuthConfig{APIKeys: []string{"key-1"}}),
		AdminMiddleware:   middleware.NewAdminMiddleware("admin-1"),
	})
}

func TestRouter_Auth(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		header map[string]string
		want   int
	}{
		{"health is public", http.MethodGet, "/api/v1/health", nil, http.StatusOK},
		{"status is public", http.MethodGet, "/api/status", nil, http.StatusOK},
		{"metrics is public", http.MethodGet, "/metrics", nil, http.StatusOK},
		{"catalog needs key", http.MethodGet, "/api/v1/catalog", nil, http.StatusUnauthorized},
		{"catalog with key", http.MethodGet, "/api/v1/catalog", map[string]string{"X-API-Key": "key-1"}, http.StatusOK},
		{"bearer key", http.MethodPost, "/api/v1/economy/u1/click", map[string]string{"Authorization": "Bearer key-1"}, http.StatusOK},
		{"admin needs admin key", http.MethodGet, "/api/v1/admin/stats", map[string]string{"X-API-Key": "key-1"}, http.StatusUnauthorized},
		{"admin with both keys", http.MethodGet, "/api/v1/admin/stats", map[string]string{"X-API-Key": "key-1", "X-Admin-Key": "admin-1"}, http.StatusOK},
		{"unknown route", http.MethodGet, "/api/v1/nope", map[string]string{"X-API-Key": "key-1"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRouter_RequestIDHeader(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
