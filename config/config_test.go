package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SWEEP_INTERVAL", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 5200, cfg.Port)
	require.Equal(t, 10, cfg.ClaimLimit)
	require.Equal(t, time.Minute, cfg.ClaimWindow)
	require.False(t, cfg.R2.Enabled())
	require.Error(t, cfg.RequireDatabase())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/stampxl")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("AUTH_HMAC_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.RequireDatabase())
	require.NoError(t, cfg.RequireAuth())
	require.Equal(t, "https://a.example,https://b.example", cfg.AllowedOrigins)
	require.Equal(t, 30*time.Second, cfg.SweepInterval)
}
