package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varroawatch/hub/internal/config"
	"github.com/varroawatch/hub/internal/lease"
	"github.com/varroawatch/hub/internal/repository/files"
	"github.com/varroawatch/hub/internal/repository/memory"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ShutdownTimeout: time.Second,
			AllowedOrigins:  []string{"https://app.example.com"},
		},
		Database: config.DatabaseConfig{Driver: "memory"},
		Storage: config.StorageConfig{
			Driver:         "filesystem",
			MaxUploadBytes: 1024,
			Filesystem: config.FileSystemConfig{
				BasePath:      t.TempDir(),
				PublicBaseURL: "http://localhost:8080/media",
			},
		},
		Sweeper: config.SweeperConfig{
			Enabled:     true,
			Interval:    time.Minute,
			Threshold:   20 * time.Minute,
			Concurrency: 2,
		},
		Notifications: config.NotificationConfig{Driver: "log"},
		Display:       config.DisplayConfig{Timezone: "Europe/Istanbul"},
		Monitoring:    config.MonitoringConfig{MetricsPath: "/metrics"},
	}
}

func TestNewDependenciesSelectsLocalBackends(t *testing.T) {
	cfg := testConfig(t)

	deps, err := NewDependencies(context.Background(), cfg)
	require.NoError(t, err)
	defer deps.Close()

	assert.IsType(t, &memory.Store{}, deps.Store)
	assert.IsType(t, &files.FileRepo{}, deps.Blobs)
	assert.IsType(t, &lease.LocalLocker{}, deps.Locker)
	assert.Equal(t, cfg.Storage.Filesystem.BasePath, deps.MediaDir)
	assert.False(t, deps.Dispatcher.Enabled())
	assert.NotNil(t, deps.Sweeper())
}

func TestNewDependenciesFailsOnUnreachableRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.Redis = config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewDependencies(ctx, cfg)
	assert.Error(t, err)
}

func TestServerHandler(t *testing.T) {
	s, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer s.deps.Close()
	h := s.handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hivehub_http_requests_total")

	req := httptest.NewRequest(http.MethodOptions, "/v1/activateHive", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
