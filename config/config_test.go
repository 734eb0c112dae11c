package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, 3, cfg.Matching.DefaultPeriodMonths)
	assert.Equal(t, 5*time.Minute, cfg.Matching.RankingCacheTTL)
	assert.Equal(t, time.Hour, cfg.Scheduler.ReconcileInterval)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.True(t, cfg.Redis.Disabled)
	assert.True(t, cfg.IsDevelopment())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("AUTH_JWT_SECRET", "s3cr3t")
	t.Setenv("AUTH_ADMIN_KEY_HASHES", "$2a$10$abc, ,$2a$10$def")
	t.Setenv("MENTORSHIP_DEFAULT_PERIOD_MONTHS", "6")
	t.Setenv("MATCHING_RANKING_CACHE_TTL", "30s")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://app:secret@db:5432/postgres?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, []string{"$2a$10$abc", "$2a$10$def"}, cfg.Auth.AdminKeyHashes)
	assert.Equal(t, 6, cfg.Matching.DefaultPeriodMonths)
	assert.Equal(t, 30*time.Second, cfg.Matching.RankingCacheTTL)
}

func TestValidate_AggregatesErrors(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("MENTORSHIP_DEFAULT_PERIOD_MONTHS", "0")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER must be one of")
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET is required")
	assert.Contains(t, err.Error(), "MENTORSHIP_DEFAULT_PERIOD_MONTHS")
}

func TestValidate_PostgresNeedsURL(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}
