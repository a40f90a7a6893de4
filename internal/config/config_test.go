package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("SQLITE_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvLocal, cfg.Env)
	assert.Equal(t, StorageSQLite, cfg.DB.Driver)
	assert.Equal(t, "migrations/sqlite", cfg.DB.Migrations)
	assert.Equal(t, "sqlite3://booksync.db", cfg.DatabaseURL())
	assert.Equal(t, 100, cfg.RateLimit)
	assert.Equal(t, 15*time.Minute, cfg.Jobs.RetryInterval)
	assert.Equal(t, 7*24*time.Hour, cfg.Jobs.ReconcileLookback)
	assert.Equal(t, 600*time.Millisecond, cfg.Jobs.BulkSyncDelay)
	assert.True(t, cfg.IsLocal())
}

func TestLoad_Postgres(t *testing.T) {
	t.Setenv("APP_ENV", EnvProd)
	t.Setenv("STORAGE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URI", "postgres://booksync@localhost/booksync")
	t.Setenv("ZOHO_REGION", "EU")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProd())
	assert.Equal(t, StoragePostgres, cfg.DB.Driver)
	assert.Equal(t, "migrations/postgres", cfg.DB.Migrations)
	assert.Equal(t, "postgres://booksync@localhost/booksync", cfg.DatabaseURL())
	assert.Equal(t, "eu", cfg.Zoho.Region)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "postgres without uri", env: map[string]string{"STORAGE_DRIVER": "postgres", "DATABASE_URI": ""}},
		{name: "unknown driver", env: map[string]string{"STORAGE_DRIVER": "mysql"}},
		{name: "non positive rate limit", env: map[string]string{"RATE_LIMIT_PER_MINUTE": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
