package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("CLIENT_ID", "client")
	t.Setenv("CLIENT_SECRET", "secret")
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("TOKEN", "")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "!", cfg.Prefix)
	require.Equal(t, 3*time.Second, cfg.DefaultCooldown())
	require.Equal(t, time.Hour, cfg.Session.SweepInterval())
	require.Equal(t, []string{"http://localhost:5173"}, cfg.API.AllowedOrigins)
	require.False(t, cfg.Production())
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("prefix: \"?\"\napi:\n  base_path: v1\ncommands:\n  cooldown_seconds: 5\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("COOLDOWN_SECONDS", "7")
	t.Setenv("API_PORT", "9000")
	t.Setenv("NODE_ENV", "production")
	t.Setenv("OWNER_IDS", "1, 2")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "?", cfg.Prefix, "yaml prefix")
	require.Equal(t, 7, cfg.Commands.CooldownSeconds, "env wins over yaml")
	require.Equal(t, ":9000", cfg.API.Addr)
	require.Equal(t, "/v1", cfg.API.BasePath)
	require.True(t, cfg.Production())
	require.Len(t, cfg.OwnerIDs, 2)
}
