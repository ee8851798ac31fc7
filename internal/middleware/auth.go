package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"cookieboy-api/pkg/apierror"
)

// AuthConfig holds configuration for the API key middleware.
type AuthConfig struct {
	// APIKeys accepted in X-API-Key or "Authorization: Bearer". Empty disables the check.
	APIKeys []string
	// PublicPaths skip authentication entirely.
	PublicPaths []string
}

// NewAuthMiddleware creates an API key middleware. Keys are injected, never read from globals.
func NewAuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	public := make(map[string]bool, len(cfg.PublicPaths))
	for _, p := range cfg.PublicPaths {
		public[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(cfg.APIKeys) == 0 || public[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := extractAPIKey(r)
			if apiKey == "" {
				apierror.Unauthorized("Authentication required. Use X-API-Key header.").Write(w)
				return
			}
			if !isValidKey(apiKey, cfg.APIKeys) {
				apierror.Unauthorized("Invalid API key").Write(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NewAdminMiddleware requires X-Admin-Key to match adminKey. An empty
// adminKey rejects every request so admin routes are closed by default.
func NewAdminMiddleware(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-Admin-Key")
			if adminKey == "" || key == "" || !isValidKey(key, []string{adminKey}) {
				apierror.Unauthorized("Admin key required").Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractAPIKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	// Browsers cannot set headers on websocket upgrades.
	return r.URL.Query().Get("api_key")
}

func isValidKey(key string, validKeys []string) bool {
	for _, valid := range validKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(valid)) == 1 {
			return true
		}
	}
	return false
}
