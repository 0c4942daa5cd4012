package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{"PORT", "ADMIN_TOKEN", "REALTIME_MODE", "NATS_URL"} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	config, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, RealtimeLocal, config.Realtime.Mode)
	assert.Len(t, config.candidates(), 15)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ADMIN_TOKEN", "from-env")

	path := writeConfig(t, `
server:
  port: 9090
  admin_token: from-file
realtime:
  mode: jetstream
  nats_url: nats://nats:4222
settings:
  cache_size: 10
  cache_ttl: 5s
roster:
  candidates:
    - id: 1
      name: Ada
      party: Independent
      display_color: blue
    - id: 2
      name: Grace
      party: Navy
      display_color: red
`)

	config, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "from-env", config.Server.AdminToken)
	assert.Equal(t, RealtimeJetStream, config.Realtime.Mode)
	assert.Equal(t, "nats://nats:4222", config.Realtime.NATSURL)
	require.Len(t, config.candidates(), 2)
	assert.Equal(t, "Grace", config.candidates()[1].Name)

	cacheCfg, err := settingsCacheConfig(config)
	require.NoError(t, err)
	assert.Equal(t, 10, cacheCfg.MaximumSize)
	assert.Equal(t, 5*time.Second, cacheCfg.TTL)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "bad mode", body: "realtime:\n  mode: carrier-pigeon\n"},
		{name: "bad port", body: "server:\n  port: 70000\n"},
		{name: "duplicate candidates", body: "roster:\n  candidates:\n    - {id: 1, name: A}\n    - {id: 1, name: B}\n"},
		{name: "not yaml", body: "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestSettingsCacheConfigBadTTL(t *testing.T) {
	config := defaultConfig()
	config.Settings.CacheTTL = "soon"

	_, err := settingsCacheConfig(config)
	assert.Error(t, err)
}
