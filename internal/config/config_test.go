package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 4, cfg.Fetch.Workers)
	require.Equal(t, 100, cfg.Fetch.QueueDepth)
	require.Equal(t, 30, cfg.Fetch.SourceTimeoutSeconds)
	require.Equal(t, 15, cfg.Providers.HTTPTimeoutSeconds)
	require.Equal(t, "NEWSWIRE_CRED_", cfg.Providers.CredentialPrefix)
	require.True(t, cfg.Logging.Development)
	require.Empty(t, cfg.DB.DSN)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
fetch:
  workers: 2
  queue_depth: 10
db:
  dsn: postgres://localhost/newswire
auth:
  enabled: true
  api_key: sekret
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 2, cfg.Fetch.Workers)
	require.Equal(t, 10, cfg.Fetch.QueueDepth)
	require.Equal(t, "postgres://localhost/newswire", cfg.DB.DSN)
	require.True(t, cfg.Auth.Enabled)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"zero workers":         "fetch:\n  workers: 0\n",
		"zero port":            "server:\n  port: 0\n",
		"auth without key":     "auth:\n  enabled: true\n",
		"zero client timeout":  "providers:\n  http_timeout_seconds: 0\n",
		"negative queue depth": "fetch:\n  queue_depth: -1\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name+".yaml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		_, err := Load(path)
		require.Error(t, err, "case %q", name)
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "30s", cfg.SourceTimeout().String())
	require.Equal(t, "15s", cfg.HTTPTimeout().String())
	require.Equal(t, "30m0s", cfg.MaxConnLifetime().String())
}
