package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithMemoryDriver(t *testing.T) {
	t.Setenv("HIVEHUB_DATABASE__DRIVER", "memory")
	t.Setenv("HIVEHUB_STORAGE__DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 20*time.Minute, cfg.Sweeper.Interval)
	assert.Equal(t, 20*time.Minute, cfg.Sweeper.Threshold)
	assert.Equal(t, 5*time.Minute, cfg.Sweeper.Timeout)
	assert.False(t, cfg.Notifications.Enabled)
	assert.Equal(t, "log", cfg.Notifications.Driver)
	assert.Equal(t, int64(10*1024*1024), cfg.Storage.MaxUploadBytes)
	assert.Equal(t, "Europe/Istanbul", cfg.Display.Timezone)
}

func TestLoadRequiresPostgresHost(t *testing.T) {
	t.Setenv("HIVEHUB_DATABASE__DRIVER", "postgres")
	t.Setenv("HIVEHUB_STORAGE__DRIVER", "memory")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres host")
}

func TestLoadReadsPostgresFromEnv(t *testing.T) {
	t.Setenv("HIVEHUB_DATABASE__DRIVER", "postgres")
	t.Setenv("HIVEHUB_DATABASE__POSTGRES__HOST", "db.internal")
	t.Setenv("HIVEHUB_STORAGE__DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
}

func TestValidateConfigClampsSweeperTimeout(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Database: DatabaseConfig{Driver: "memory"},
		Storage:  StorageConfig{Driver: "memory"},
		Sweeper: SweeperConfig{
			Interval:  time.Minute,
			Threshold: time.Minute,
			Timeout:   time.Hour,
		},
		Notifications: NotificationConfig{Driver: "log"},
	}
	require.NoError(t, validateConfig(cfg))
	assert.Equal(t, time.Minute, cfg.Sweeper.Timeout)
	assert.Equal(t, 1, cfg.Sweeper.Concurrency)
}

func TestValidateConfigRejectsUnknownDrivers(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Database:      DatabaseConfig{Driver: "mongo"},
		Storage:       StorageConfig{Driver: "memory"},
		Sweeper:       SweeperConfig{Interval: time.Minute, Threshold: time.Minute},
		Notifications: NotificationConfig{Driver: "log"},
	}
	assert.Error(t, validateConfig(cfg))

	cfg.Database.Driver = "memory"
	cfg.Notifications.Driver = "carrier-pigeon"
	assert.Error(t, validateConfig(cfg))
}

func TestDisplayLocationFallsBackToUTC(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.UTC, DisplayConfig{Timezone: "Nowhere/Special"}.Location())
}
