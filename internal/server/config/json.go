package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/foodcrm/internal/flagx"
	"github.com/dmitrijs2005/foodcrm/internal/timex"
)

// EnvConfigFile names the config file when -c is absent.
const EnvConfigFile = "CRM_SERVER_CONFIG"

// JSONConfig is the on-disk form of Config. Durations accept "15m" strings
// or integer nanoseconds.
type JSONConfig struct {
	EndpointAddr                 string         `json:"endpoint_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	RateLimit                    float64        `json:"rate_limit"`
	RateBurst                    int            `json:"rate_burst"`
	MaxPageSize                  int            `json:"max_page_size"`
	LogLevel                     string         `json:"log_level"`
	ShutdownTimeout              timex.Duration `json:"shutdown_timeout"`
}

// parseJSON overlays config with the non-zero fields of the config file, if
// one is named.
func parseJSON(config *Config, args []string) error {
	path := flagx.ConfigFile(args, EnvConfigFile)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var c JSONConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.EndpointAddr, c.EndpointAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogLevel, c.LogLevel)
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration > 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.ShutdownTimeout.Duration > 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	if c.RateLimit > 0 {
		config.RateLimit = c.RateLimit
	}
	if c.RateBurst > 0 {
		config.RateBurst = c.RateBurst
	}
	if c.MaxPageSize > 0 {
		config.MaxPageSize = c.MaxPageSize
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
