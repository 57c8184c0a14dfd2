package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rollout/pkg/config"
	"github.com/dmitrymomot/rollout/pkg/redis"
	"github.com/dmitrymomot/rollout/pkg/rollout"
)

func TestLoadRolloutConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var cfg rollout.Config
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "feature", cfg.KeyPrefix)
		assert.Equal(t, "sets", cfg.DefaultFormat)
		assert.Empty(t, cfg.ForceFormat)
		assert.False(t, cfg.RandomizePercentage)
		assert.Equal(t, "ID", cfg.IDField)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("ROLLOUT_KEY_PREFIX", "flags")
		t.Setenv("ROLLOUT_DEFAULT_FORMAT", "embedded")
		t.Setenv("ROLLOUT_RANDOMIZE_PERCENTAGE", "true")
		t.Setenv("ROLLOUT_ID_FIELD", "UUID")

		var cfg rollout.Config
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "flags", cfg.KeyPrefix)
		assert.Equal(t, "embedded", cfg.DefaultFormat)
		assert.True(t, cfg.RandomizePercentage)
		assert.Equal(t, "UUID", cfg.IDField)
	})

	t.Run("invalid bool", func(t *testing.T) {
		t.Setenv("ROLLOUT_RANDOMIZE_PERCENTAGE", "maybe")

		var cfg rollout.Config
		err := config.Load(&cfg)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})
}

func TestLoadFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("REDIS_URL=redis://cache:6379/2\nREDIS_RETRY_ATTEMPTS=7\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("REDIS_URL")
		_ = os.Unsetenv("REDIS_RETRY_ATTEMPTS")
	})

	var cfg redis.Config
	require.NoError(t, config.Load(&cfg, path))
	assert.Equal(t, "redis://cache:6379/2", cfg.ConnectionURL)
	assert.Equal(t, 7, cfg.RetryAttempts)
	assert.Equal(t, 5*time.Second, cfg.RetryInterval)
}

func TestLoadErrors(t *testing.T) {
	var nilCfg *rollout.Config
	assert.ErrorIs(t, config.Load(nilCfg), config.ErrNilPointer)

	var cfg rollout.Config
	err := config.Load(&cfg, filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorIs(t, err, config.ErrLoadingEnvFile)

	assert.Panics(t, func() {
		config.MustLoad(&cfg, filepath.Join(t.TempDir(), "missing.env"))
	})
}
