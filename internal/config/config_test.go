package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.DatabaseDriver)
	require.Equal(t, ":3001", cfg.HTTPAddress())
	require.Equal(t, 5*time.Second, cfg.CacheTTL)
	require.Equal(t, 10*1024*1024, cfg.BodyLimitBytes())
	require.Equal(t, 30, cfg.ChatRateLimit)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LOSTFOUND_APP_PORT", ":9090")
	t.Setenv("LOSTFOUND_DATABASE_DRIVER", "Postgres")
	t.Setenv("LOSTFOUND_DATABASE_URL", "postgres://localhost/lostfound")
	t.Setenv("LOSTFOUND_CACHE_TTL", "250ms")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, "postgres", cfg.DatabaseDriver)
	require.Equal(t, 250*time.Millisecond, cfg.CacheTTL)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("LOSTFOUND_DATABASE_DRIVER", "mongo")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("LOSTFOUND_CACHE_TTL", "soon")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadClient(t *testing.T) {
	t.Setenv("LOSTFOUND_CLIENT_BASE_URL", "http://board.local/")
	t.Setenv("LOSTFOUND_CLIENT_TRANSPORT", "ws")

	cfg, err := LoadClient()
	require.NoError(t, err)
	require.Equal(t, "http://board.local", cfg.BaseURL)
	require.Equal(t, "ws", cfg.Transport)
	require.Equal(t, 5*time.Second, cfg.PollInterval)
	require.Equal(t, "v1.0.0", cfg.CacheVersion)

	t.Setenv("LOSTFOUND_CLIENT_TRANSPORT", "carrier-pigeon")
	_, err = LoadClient()
	require.Error(t, err)
}
