package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"cookieboy-api/internal/ratelimit"

	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	h := NewAuthMiddleware(AuthConfig{APIKeys: []string{"k1", "k2"}, PublicPaths: []string{"/api/v1/health"}})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil)
	require.Equal(t, http.StatusUnauthorized, serve(h, req).Code)

	req.Header.Set("X-API-Key", "nope")
	require.Equal(t, http.StatusUnauthorized, serve(h, req).Code)

	req.Header.Set("X-API-Key", "k2")
	require.Equal(t, http.StatusOK, serve(h, req).Code)

	bearer := httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil)
	bearer.Header.Set("Authorization", "Bearer k1")
	require.Equal(t, http.StatusOK, serve(h, bearer).Code)

	query := httptest.NewRequest(http.MethodGet, "/ws/chat?api_key=k1", nil)
	require.Equal(t, http.StatusOK, serve(h, query).Code)

	health := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, serve(h, health).Code)

	open := NewAuthMiddleware(AuthConfig{})(okHandler)
	require.Equal(t, http.StatusOK, serve(open, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
}

func TestAdminMiddleware(t *testing.T) {
	closed := NewAdminMiddleware("")(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
	req.Header.Set("X-Admin-Key", "")
	require.Equal(t, http.StatusUnauthorized, serve(closed, req).Code)

	h := NewAdminMiddleware("root")(okHandler)
	require.Equal(t, http.StatusUnauthorized, serve(h, req).Code)
	req.Header.Set("X-Admin-Key", "root")
	require.Equal(t, http.StatusOK, serve(h, req).Code)
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	require.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	serve(h, req)
	require.Equal(t, "abc-123", seen)
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"success":false,"error":{"code":"INTERNAL_ERROR","message":"internal server error"}}`, rec.Body.String())
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{PerMinute: 1, Burst: 1})
	t.Cleanup(limiter.Close)
	h := RateLimit(limiter)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	require.Equal(t, http.StatusOK, serve(h, req).Code)
	rec := serve(h, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "1", rec.Header().Get("Retry-After"))

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.0.0.1:6000"
	other.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	require.Equal(t, http.StatusOK, serve(h, other).Code)
}
