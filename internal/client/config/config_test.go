package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", c.ServerURL)
	assert.Equal(t, "http", c.Backend)
	assert.Equal(t, 5*time.Minute, c.QueryTTL)
	assert.Equal(t, 20, c.PageSize)
	assert.Equal(t, 5*time.Second, c.OnlineCheckInterval)
}

func TestLoad_JSONThenFlags(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	path := writeTempJSON(t, map[string]any{
		"server_url": "https://crm.example.com",
		"page_size":  50,
		"query_ttl":  "2m",
	})

	cfg, err := load([]string{"-c", path, "-n", "7", "-x", "ignored"})
	require.NoError(t, err)

	assert.Equal(t, "https://crm.example.com", cfg.ServerURL)
	assert.Equal(t, 7, cfg.PageSize, "flags override the file")
	assert.Equal(t, 2*time.Minute, cfg.QueryTTL)
	assert.Equal(t, "info", cfg.LogLevel, "unset keys keep defaults")
}
