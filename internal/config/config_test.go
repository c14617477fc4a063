package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", strings.Repeat("x", 32))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 1000, cfg.ImportBatchSize)
	assert.Equal(t, 4000, cfg.ImportSyncRowLimit)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.True(t, cfg.DefaultDSN())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", strings.Repeat("y", 40))
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "stok.db")
	t.Setenv("IMPORT_SYNC_ROW_LIMIT", "10")
	t.Setenv("IMPORT_JOB_RETENTION", "2h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 10, cfg.ImportSyncRowLimit)
	assert.Equal(t, 2*time.Hour, cfg.ImportJobRetention)
	assert.False(t, cfg.DefaultDSN())
}

func TestLoadRejectsWeakSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", strings.Repeat("x", 32))
	t.Setenv("DB_DRIVER", "oracle")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadWithoutAuthSkipsSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := LoadWithoutAuth()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBDriver)
}
