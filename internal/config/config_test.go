package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ADMIN_EMAIL", "ADMIN_PASSWORD", "SESSION_SECRET", "DB_PATH", "PORT",
		"COSTWORKS_ADMIN_EMAIL", "COSTWORKS_ADMIN_PASSWORD", "COSTWORKS_SESSION_SECRET",
		"COSTWORKS_DB_PATH", "COSTWORKS_PORT", "COSTWORKS_LOG_LEVEL", "COSTWORKS_DEV",
		"COSTWORKS_MC_WORKERS", "COSTWORKS_MAX_ITERATIONS", "COSTWORKS_LOG_FORMAT",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "./dev.db", cfg.DBPath)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 200_000, cfg.MaxIterations)
	assert.GreaterOrEqual(t, cfg.MCWorkers, 1)
	assert.False(t, cfg.IsDev())
	assert.Len(t, cfg.Warnings, 3)
}

func TestLoad_LegacyAndPrefixedEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ADMIN_EMAIL", "admin@example.com")
	t.Setenv("COSTWORKS_ADMIN_PASSWORD", "secret")
	t.Setenv("SESSION_SECRET", "legacy")
	t.Setenv("COSTWORKS_SESSION_SECRET", "prefixed")
	t.Setenv("COSTWORKS_MAX_ITERATIONS", "5000")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "admin@example.com", cfg.AdminEmail)
	assert.Equal(t, "secret", cfg.AdminPassword)
	assert.Equal(t, "prefixed", cfg.SessionSecret)
	assert.Equal(t, 5000, cfg.MaxIterations)
	assert.Empty(t, cfg.Warnings)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")

	cfg, err := Load([]string{"--port", "9100", "--dev", "--db", "/tmp/x.db", "--mc-workers", "3"})
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, 3, cfg.MCWorkers)
	assert.True(t, cfg.IsDev())
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "costworks.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"7000\"\nlog_level: debug\nmax_iterations: 1000\n"), 0o600))

	cfg, err := Load([]string{"--config", path})
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 1000, cfg.MaxIterations)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)

	_, err = Load([]string{"--no-such-flag"})
	assert.Error(t, err)

	t.Setenv("COSTWORKS_MAX_ITERATIONS", "0")
	_, err = Load(nil)
	assert.Error(t, err)
}
