package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/foodcrm/internal/flagx"
	"github.com/dmitrijs2005/foodcrm/internal/timex"
)

// EnvConfigFile names the config file when -c is absent.
const EnvConfigFile = "CRM_CLIENT_CONFIG"

// JSONConfig is the on-disk form of Config. Intervals accept "30s" strings
// or integer nanoseconds.
type JSONConfig struct {
	ServerURL           string         `json:"server_url"`
	Backend             string         `json:"backend"`
	QueryTTL            timex.Duration `json:"query_ttl"`
	PageSize            int            `json:"page_size"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	DataDir             string         `json:"data_dir"`
	LogLevel            string         `json:"log_level"`
}

// parseJSON overlays cfg with the non-zero fields of the config file, if
// one is named.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFile(args, EnvConfigFile)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var jc JSONConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.Backend, jc.Backend)
	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.PageSize > 0 {
		cfg.PageSize = jc.PageSize
	}
	if jc.QueryTTL.Duration > 0 {
		cfg.QueryTTL = jc.QueryTTL.Duration
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
