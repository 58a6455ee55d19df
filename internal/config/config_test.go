package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, EnvDev, cfg.Env)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "./data/tagwarden.db", cfg.DBPath)
	assert.Equal(t, 30, cfg.HeartbeatRetentionDays)
	assert.Equal(t, 6, cfg.PruneIntervalHours)
	assert.True(t, cfg.MetricsEnabled)
	assert.False(t, cfg.SeedDev)
}

func TestLoad_UnknownEnvFallsBackToDev(t *testing.T) {
	t.Setenv("TAGWARDEN_ENV", "Staging")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsDev())
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	t.Setenv("TAGWARDEN_DB_DRIVER", "postgres")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("TAGWARDEN_DB_DSN", "postgres://tagwarden@localhost/tagwarden")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("TAGWARDEN_DB_DRIVER", "mysql")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_NegativeRetentionDisablesPruning(t *testing.T) {
	t.Setenv("TAGWARDEN_HEARTBEAT_RETENTION_DAYS", "-5")
	t.Setenv("TAGWARDEN_PRUNE_INTERVAL_HOURS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.HeartbeatRetentionDays)
	assert.Equal(t, 6, cfg.PruneIntervalHours)
}
