package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	require.Equal(t, "sqlite", cfg.EconomyDB.Type)
	require.Equal(t, "memory", cfg.Cache.Type)
	require.Equal(t, 10*time.Second, cfg.Economy.TickInterval)
	require.Equal(t, "interval", cfg.Economy.PassiveMode)
	require.Equal(t, int64(100), cfg.Economy.MaxPurchaseQuantity)
	require.Equal(t, 24*time.Hour, cfg.Economy.DailyCooldown)
	require.Equal(t, 5, cfg.Economy.LeaderboardSize)
	require.Equal(t, float64(60), cfg.RateLimit.CommandsPerMinute)
	require.Empty(t, cfg.Auth.APIKeys)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ECONOMY_DB_TYPE", "bolt")
	t.Setenv("ECONOMY_PASSIVE_MODE", "fixed")
	t.Setenv("ECONOMY_TICK_INTERVAL", "2s")
	t.Setenv("API_KEYS", "alpha,beta")
	t.Setenv("REDIS_HOST", "cache.internal")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "bolt", cfg.EconomyDB.Type)
	require.Equal(t, "fixed", cfg.Economy.PassiveMode)
	require.Equal(t, 2*time.Second, cfg.Economy.TickInterval)
	require.Equal(t, []string{"alpha", "beta"}, cfg.Auth.APIKeys)
	require.Equal(t, "cache.internal:6379", cfg.Cache.RedisAddress())
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"ECONOMY_DB_TYPE":       "mongodb",
		"CACHE_TYPE":            "memcached",
		"ECONOMY_PASSIVE_MODE":  "sometimes",
		"ECONOMY_TICK_INTERVAL": "1ms",
		"ECONOMY_MAX_PURCHASE":  "0",
		"LEADERBOARD_SIZE":      "500",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
			require.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_ProductionRequiresAPIKeys(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	_, err := Load()
	require.ErrorContains(t, err, "API_KEYS")

	t.Setenv("API_KEYS", "k1")
	_, err = Load()
	require.NoError(t, err)
}

func TestDSNs(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 3306, Name: "cookies", User: "bot", Password: "s3cret"}
	require.Equal(t, "bot:s3cret@tcp(db:3306)/cookies?parseTime=true", db.DSN())

	pg := EconomyDBConfig{Host: "pg", Port: 5432, Name: "cookies", User: "bot", Password: "pw", SSLMode: "require"}
	require.Equal(t, "postgres://bot:pw@pg:5432/cookies?sslmode=require", pg.PostgresDSN())
}
