package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the CRM CLI.
type Config struct {
	ServerURL           string
	Backend             string
	QueryTTL            time.Duration
	PageSize            int
	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration
	DataDir             string
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.Backend = "http"
	c.QueryTTL = 5 * time.Minute
	c.PageSize = 20
	c.OnlineCheckInterval = 5 * time.Second
	c.RequestTimeout = 10 * time.Second
	c.DataDir = "~/.foodcrm"
	c.LogLevel = "info"
}

// LoadConfig applies defaults, then the JSON file named by -c/-config (or
// $CRM_CLIENT_CONFIG), then command-line flags. Later sources win.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
