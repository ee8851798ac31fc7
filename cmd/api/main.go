package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cookieboy-api/internal/cache"
	"cookieboy-api/internal/catalog"
	"cookieboy-api/internal/command"
	"cookieboy-api/internal/config"
	"cookieboy-api/internal/gateway"
	"cookieboy-api/internal/handler"
	"cookieboy-api/internal/metrics"
	"cookieboy-api/internal/middleware"
	"cookieboy-api/internal/ratelimit"
	"cookieboy-api/internal/repository"
	"cookieboy-api/internal/router"
	"cookieboy-api/internal/service"

	_ "github.com/go-sql-driver/mysql"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Load configuration
	cfg := config.MustLoad()

	if cfg.Log.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		}
		defer rotator.Close()
		log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	}

	log.Printf("Starting %s %s...", cfg.App.Name, cfg.App.Version)
	log.Printf("Environment: %s", cfg.App.Environment)

	repo, err := openEconomyRepository(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize %s economy store: %v", cfg.EconomyDB.Type, err)
	}
	defer repo.Close()
	log.Printf("Economy store initialized (%s)", cfg.EconomyDB.Type)

	cat, err := catalog.Load(cfg.Economy.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	log.Printf("Catalog loaded with %d items", len(cat.Items()))

	// Leaderboard cache
	var leaderboardCache cache.Cache
	switch cfg.Cache.Type {
	case "redis":
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:      cfg.Cache.RedisAddress(),
			Password:  cfg.Cache.RedisPassword,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: cfg.Cache.RedisPrefix,
		})
		if err != nil {
			log.Printf("Warning: Redis cache unavailable, using memory cache: %v", err)
			leaderboardCache = cache.NewMemoryCache()
		} else {
			leaderboardCache = redisCache
			log.Println("Redis cache initialized")
		}
	default:
		leaderboardCache = cache.NewMemoryCache()
	}
	defer leaderboardCache.Close()

	m := metrics.New()

	// Initialize services
	economy := service.NewEconomyService(repo, cat, service.EconomyConfig{
		MaxPurchaseQuantity: cfg.Economy.MaxPurchaseQuantity,
		DailyCooldown:       cfg.Economy.DailyCooldown,
		PassiveMode:         service.PassiveMode(cfg.Economy.PassiveMode),
	}, service.WithRecorder(m))
	ranking := service.NewRankingService(economy, leaderboardCache, cfg.Economy.LeaderboardTTL)

	scheduler := service.NewPassiveScheduler(economy, service.PassiveConfig{
		TickInterval: cfg.Economy.TickInterval,
	})
	scheduler.Start()

	commandLimiter := ratelimit.New(ratelimit.Config{
		PerMinute: cfg.RateLimit.CommandsPerMinute,
		Burst:     cfg.RateLimit.CommandBurst,
	})
	defer commandLimiter.Close()
	httpLimiter := ratelimit.New(ratelimit.Config{
		PerMinute: cfg.RateLimit.HTTPPerMinute,
		Burst:     cfg.RateLimit.HTTPBurst,
	})
	defer httpLimiter.Close()

	dispatcher := command.NewDispatcher(economy, ranking, cat, command.Config{
		MaxPurchaseQuantity: cfg.Economy.MaxPurchaseQuantity,
		LeaderboardSize:     cfg.Economy.LeaderboardSize,
		Limiter:             commandLimiter,
		Recorder:            m,
	})

	chat := gateway.NewServer(dispatcher, gateway.Config{
		MaxMessageBytes: cfg.Gateway.MaxMessageBytes,
		PingInterval:    cfg.Gateway.PingInterval,
		WriteTimeout:    cfg.Gateway.WriteTimeout,
		AllowedOrigins:  cfg.Gateway.AllowedOrigins,
	}, m)

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Version, map[string]handler.HealthChecker{
		"economy_store": func(ctx context.Context) error {
			_, err := repo.Stats(ctx)
			return err
		},
	})
	economyHandler := handler.NewEconomyHandler(economy, ranking, cat, cfg.Economy.LeaderboardSize)
	commandHandler := handler.NewCommandHandler(dispatcher)
	adminHandler := handler.NewAdminHandler(economy, scheduler, cfg.EconomyDB.Type, cfg.Cache.Type)

	if len(cfg.Auth.APIKeys) == 0 {
		log.Println("Warning: API_KEYS is empty, API key checks are disabled")
	}

	// Create router
	r := router.New(router.Config{
		Handler:           healthHandler,
		EconomyHandler:    economyHandler,
		CommandHandler:    commandHandler,
		AdminHandler:      adminHandler,
		ChatGateway:       chat,
		MetricsHandler:    m.Handler(),
		AuthMiddleware:    middleware.NewAuthMiddleware(middleware.AuthConfig{APIKeys: cfg.Auth.APIKeys}),
		AdminMiddleware:   middleware.NewAdminMiddleware(cfg.Auth.AdminKey),
		MetricsMiddleware: m.Middleware,
		RateLimit:         middleware.RateLimit(httpLimiter),
		AllowedOrigins:    cfg.Gateway.AllowedOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	// Hijacked websocket sessions are not tracked by srv.Shutdown
	if err := chat.Shutdown(ctx); err != nil {
		log.Printf("Chat gateway shutdown error: %v", err)
	}

	// Stop crediting before the store closes
	scheduler.Stop()

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}

// openEconomyRepository opens the backend selected by ECONOMY_DB_TYPE.
func openEconomyRepository(cfg *config.Config) (repository.EconomyRepository, error) {
	switch cfg.EconomyDB.Type {
	case "postgres":
		return repository.NewPostgresEconomyRepository(cfg.EconomyDB.PostgresDSN())

	case "mysql":
		db, err := sql.Open("mysql", cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to open mysql: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping mysql: %w", err)
		}
		return repository.NewMySQLEconomyRepository(db)

	case "bolt":
		return repository.NewBoltEconomyRepository(cfg.EconomyDB.BoltPath)

	case "memory":
		log.Println("Warning: memory economy store loses all state on restart")
		return repository.NewMemoryEconomyRepository(), nil

	default: // sqlite
		return repository.NewSQLiteEconomyRepository(cfg.EconomyDB.Path)
	}
}
