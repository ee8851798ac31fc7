package router

import (
	"net/http"

	"cookieboy-api/internal/handler"
	"cookieboy-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	EconomyHandler *handler.EconomyHandler
	CommandHandler *handler.CommandHandler
	AdminHandler   *handler.AdminHandler
	ChatGateway    http.Handler
	MetricsHandler http.Handler

	AuthMiddleware    func(http.Handler) http.Handler
	AdminMiddleware   func(http.Handler) http.Handler
	MetricsMiddleware func(http.Handler) http.Handler
	RateLimit         func(http.Handler) http.Handler
	AllowedOrigins    []string
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	if cfg.MetricsMiddleware != nil {
		r.Use(cfg.MetricsMiddleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key", "X-Admin-Key"},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         300,
	}))
	if cfg.RateLimit != nil {
		r.Use(cfg.RateLimit)
	}

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
		r.Get("/api/v1/health", cfg.Handler.Health)
		r.Get("/api/v1/ready", cfg.Handler.Ready)
	}
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	// AUTHENTICATED routes
	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		if cfg.ChatGateway != nil {
			r.Method(http.MethodGet, "/ws/chat", cfg.ChatGateway)
		}

		r.Route("/api/v1", func(r chi.Router) {
			if cfg.EconomyHandler != nil {
				r.Get("/catalog", cfg.EconomyHandler.Catalog)
				r.Get("/leaderboard", cfg.EconomyHandler.Leaderboard)

				r.Route("/economy/{user_id}", func(r chi.Router) {
					r.Get("/", cfg.EconomyHandler.Profile)
					r.Get("/history", cfg.EconomyHandler.History)
					r.Post("/click", cfg.EconomyHandler.Click)
					r.Post("/daily", cfg.EconomyHandler.Daily)
					r.Post("/buy", cfg.EconomyHandler.Buy)
					r.Post("/give", cfg.EconomyHandler.Give)
				})
			}

			if cfg.CommandHandler != nil {
				r.Post("/commands", cfg.CommandHandler.Handle)
			}

			// Admin endpoints need the admin key on top of an API key
			if cfg.AdminHandler != nil {
				r.Route("/admin", func(r chi.Router) {
					if cfg.AdminMiddleware != nil {
						r.Use(cfg.AdminMiddleware)
					}
					r.Get("/stats", cfg.AdminHandler.GetStats)
					r.Post("/passive/tick", cfg.AdminHandler.RunPassiveTick)
				})
			}
		})
	})

	return r
}
