package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Log       LogConfig
	Cache     CacheConfig
	Database  DatabaseConfig
	EconomyDB EconomyDBConfig
	Economy   EconomyConfig
	Gateway   GatewayConfig
	RateLimit RateLimitConfig
	Auth      AuthConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"cookieboy-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// LogConfig controls log output. An empty File logs to stderr only.
type LogConfig struct {
	File       string `envconfig:"LOG_FILE" default:""`
	MaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB" default:"100"`
	MaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"5"`
	MaxAgeDays int    `envconfig:"LOG_MAX_AGE_DAYS" default:"28"`
	Compress   bool   `envconfig:"LOG_COMPRESS" default:"true"`
}

// CacheConfig holds leaderboard cache settings.
type CacheConfig struct {
	Type string `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"cookieboy:cache"`
}

// DatabaseConfig holds MySQL connection settings, used when ECONOMY_DB_TYPE=mysql.
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"3306"`
	Name     string `envconfig:"DB_NAME" default:"cookieboy"`
	User     string `envconfig:"DB_USER" default:"root"`
	Password string `envconfig:"DB_PASS" default:""`
}

// EconomyDBConfig selects the economy store backend.
type EconomyDBConfig struct {
	Type     string `envconfig:"ECONOMY_DB_TYPE" default:"sqlite"` // sqlite, postgres, mysql, bolt or memory
	Path     string `envconfig:"ECONOMY_DB_PATH" default:"./data/economy.db"`
	BoltPath string `envconfig:"ECONOMY_BOLT_PATH" default:"./data/economy.bolt"`
	// PostgreSQL settings
	Host     string `envconfig:"ECONOMY_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"ECONOMY_DB_PORT" default:"5432"`
	Name     string `envconfig:"ECONOMY_DB_NAME" default:"cookieboy"`
	User     string `envconfig:"ECONOMY_DB_USER" default:"postgres"`
	Password string `envconfig:"ECONOMY_DB_PASS" default:""`
	SSLMode  string `envconfig:"ECONOMY_DB_SSLMODE" default:"disable"`
}

// EconomyConfig holds game rules.
type EconomyConfig struct {
	TickInterval        time.Duration `envconfig:"ECONOMY_TICK_INTERVAL" default:"10s"`
	PassiveMode         string        `envconfig:"ECONOMY_PASSIVE_MODE" default:"interval"` // interval or fixed
	MaxPurchaseQuantity int64         `envconfig:"ECONOMY_MAX_PURCHASE" default:"100"`
	DailyCooldown       time.Duration `envconfig:"ECONOMY_DAILY_COOLDOWN" default:"24h"`
	CatalogPath         string        `envconfig:"CATALOG_PATH" default:""`
	LeaderboardSize     int           `envconfig:"LEADERBOARD_SIZE" default:"5"`
	LeaderboardTTL      time.Duration `envconfig:"LEADERBOARD_TTL" default:"5s"`
}

// GatewayConfig holds websocket chat gateway settings.
type GatewayConfig struct {
	MaxMessageBytes int64         `envconfig:"WS_MAX_MESSAGE_BYTES" default:"4096"`
	PingInterval    time.Duration `envconfig:"WS_PING_INTERVAL" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"WS_WRITE_TIMEOUT" default:"10s"`
	AllowedOrigins  []string      `envconfig:"WS_ALLOWED_ORIGINS" default:""`
}

// RateLimitConfig holds per-user chat and per-client HTTP limits.
type RateLimitConfig struct {
	CommandsPerMinute float64 `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60"`
	CommandBurst      int     `envconfig:"RATE_LIMIT_BURST" default:"10"`
	HTTPPerMinute     float64 `envconfig:"HTTP_RATE_LIMIT_PER_MINUTE" default:"600"`
	HTTPBurst         int     `envconfig:"HTTP_RATE_LIMIT_BURST" default:"50"`
}

// AuthConfig holds API credentials. Empty APIKeys disables key checks.
type AuthConfig struct {
	APIKeys  []string `envconfig:"API_KEYS" default:""`
	AdminKey string   `envconfig:"ADMIN_KEY" default:""`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return net.JoinHostPort(c.RedisHost, strconv.Itoa(c.RedisPort))
}

// DSN returns the MySQL data source name.
func (d *DatabaseConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// PostgresDSN returns the PostgreSQL connection string.
func (e *EconomyDBConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		e.User, e.Password, net.JoinHostPort(e.Host, strconv.Itoa(e.Port)), e.Name, e.SSLMode)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Validate rejects settings the process cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.EconomyDB.Type {
	case "sqlite", "postgres", "mysql", "bolt", "memory":
	default:
		errs = append(errs, fmt.Errorf("ECONOMY_DB_TYPE %q is not one of sqlite, postgres, mysql, bolt, memory", c.EconomyDB.Type))
	}
	switch c.Cache.Type {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("CACHE_TYPE %q is not one of memory, redis", c.Cache.Type))
	}
	switch c.Economy.PassiveMode {
	case "interval", "fixed":
	default:
		errs = append(errs, fmt.Errorf("ECONOMY_PASSIVE_MODE %q is not one of interval, fixed", c.Economy.PassiveMode))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT %d out of range", c.Server.Port))
	}
	if c.Economy.TickInterval < 100*time.Millisecond {
		errs = append(errs, fmt.Errorf("ECONOMY_TICK_INTERVAL %v is below 100ms", c.Economy.TickInterval))
	}
	if c.Economy.MaxPurchaseQuantity < 1 {
		errs = append(errs, errors.New("ECONOMY_MAX_PURCHASE must be at least 1"))
	}
	if c.Economy.DailyCooldown <= 0 {
		errs = append(errs, errors.New("ECONOMY_DAILY_COOLDOWN must be positive"))
	}
	if c.Economy.LeaderboardSize < 1 || c.Economy.LeaderboardSize > 100 {
		errs = append(errs, fmt.Errorf("LEADERBOARD_SIZE %d must be between 1 and 100", c.Economy.LeaderboardSize))
	}
	if c.RateLimit.CommandsPerMinute <= 0 || c.RateLimit.HTTPPerMinute <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	if c.Gateway.MaxMessageBytes < 64 {
		errs = append(errs, errors.New("WS_MAX_MESSAGE_BYTES must be at least 64"))
	}
	if c.App.IsProduction() && len(c.Auth.APIKeys) == 0 {
		errs = append(errs, errors.New("API_KEYS is required in production"))
	}

	return errors.Join(errs...)
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
