package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestParseJSON(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"server_url":            "http://www.example:9000",
		"online_check_interval": "10s",
		"request_timeout":       int64(2 * time.Second),
	})

	t.Run("from flag", func(t *testing.T) {
		t.Setenv(EnvConfigFile, "")
		cfg := &Config{Backend: "memory"}
		require.NoError(t, parseJSON(cfg, []string{"-config", path}))

		assert.Equal(t, "http://www.example:9000", cfg.ServerURL)
		assert.Equal(t, 10*time.Second, cfg.OnlineCheckInterval)
		assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
		assert.Equal(t, "memory", cfg.Backend)
	})

	t.Run("from env", func(t *testing.T) {
		t.Setenv(EnvConfigFile, path)
		cfg := &Config{}
		require.NoError(t, parseJSON(cfg, nil))
		assert.Equal(t, "http://www.example:9000", cfg.ServerURL)
	})

	t.Run("nothing named leaves cfg alone", func(t *testing.T) {
		t.Setenv(EnvConfigFile, "")
		cfg := &Config{ServerURL: "keep"}
		require.NoError(t, parseJSON(cfg, nil))
		assert.Equal(t, "keep", cfg.ServerURL)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		t.Setenv(EnvConfigFile, "")
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ nope`), 0o600))
		assert.Error(t, parseJSON(&Config{}, []string{"-c", bad}))
	})
}
