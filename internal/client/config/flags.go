package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/foodcrm/internal/flagx"
)

var ownFlags = []string{"-a", "-b", "-t", "-n", "-i", "-r", "-d", "-l"}

// parseFlags overlays cfg with the flags this package owns; other flags in
// args are ignored. Durations are given in whole seconds.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the CRM API")
	fs.StringVar(&cfg.Backend, "b", cfg.Backend, "entity backend: http or memory")
	fs.IntVar(&cfg.PageSize, "n", cfg.PageSize, "page size")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "local data directory")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level: debug, info, warn, error")
	ttl := fs.Int("t", int(cfg.QueryTTL.Seconds()), "query cache TTL (seconds)")
	check := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (seconds)")
	timeout := fs.Int("r", int(cfg.RequestTimeout.Seconds()), "request timeout (seconds)")

	if err := fs.Parse(flagx.FilterArgs(args, ownFlags)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	cfg.QueryTTL = time.Duration(*ttl) * time.Second
	cfg.OnlineCheckInterval = time.Duration(*check) * time.Second
	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	return nil
}
