package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"babyhabits/pkg/logger"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	previous, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(previous) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("TRACKING_TIMEZONE", "")

	cfg, err := Load(logger.Nop())
	require.NoError(t, err)
	require.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	require.Equal(t, 6*time.Hour, cfg.Tracking.FeedingStaleAfter)
	require.Equal(t, 18*time.Hour, cfg.Tracking.SleepStaleAfter)
	require.Equal(t, 7, cfg.Tracking.RecentWeights)
	require.Equal(t, 7*24*time.Hour, cfg.Invite.TTL)
	require.Equal(t, 30*time.Minute, cfg.Tracking.TrackerIdleAfter)
	require.False(t, cfg.Redis.Enabled())
}

func TestLoadTrimsJWTSecret(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SUPABASE_JWT_SECRET", "   ")

	cfg, err := Load(logger.Nop())
	require.NoError(t, err)
	require.Empty(t, cfg.Supabase.JWTSecret)
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "cmd", "babyhabits")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte(
		"# local settings\n"+
			"STORE_DRIVER=memory\n"+
			"TRACKING_TIMEZONE=\"Europe/Madrid\"\n"+
			"CORS_ALLOWED_ORIGINS=https://a.example, https://b.example\n"+
			"HTTP_PORT=9000\n",
	), 0o600))
	chdir(t, nested)

	t.Setenv("HTTP_PORT", "7000")
	for _, key := range []string{"STORE_DRIVER", "TRACKING_TIMEZONE", "CORS_ALLOWED_ORIGINS"} {
		key := key
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load(logger.Nop())
	require.NoError(t, err)
	require.Equal(t, "7000", cfg.HTTPPort)
	require.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)

	loc, err := cfg.Tracking.Location()
	require.NoError(t, err)
	require.Equal(t, "Europe/Madrid", loc.String())
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STORE_DRIVER", "mongo")

	_, err := Load(logger.Nop())
	require.Error(t, err)
}

func TestDSNPrefersExplicitValue(t *testing.T) {
	require.Equal(t, "postgres://x", DBConfig{DSN: "postgres://x"}.GetDSN())
	require.Contains(t, DBConfig{Host: "db", Port: "5432", Name: "babyhabits"}.GetDSN(), "host=db")
}
