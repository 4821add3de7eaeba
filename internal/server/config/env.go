package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// loadDotEnv is a seam for tests; it reads .env from the working directory
// without overriding variables that are already set.
var loadDotEnv = func() error { return godotenv.Load() }

// parseEnv overlays config with CRM_* environment variables.
func parseEnv(config *Config) error {
	if err := loadDotEnv(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	for key, dst := range map[string]*string{
		"CRM_ENDPOINT_ADDR": &config.EndpointAddr,
		"CRM_DATABASE_DSN":  &config.DatabaseDSN,
		"CRM_SECRET_KEY":    &config.SecretKey,
		"CRM_S3_USER":       &config.S3RootUser,
		"CRM_S3_PASSWORD":   &config.S3RootPassword,
		"CRM_S3_BUCKET":     &config.S3Bucket,
		"CRM_S3_REGION":     &config.S3Region,
		"CRM_S3_ENDPOINT":   &config.S3BaseEndpoint,
		"CRM_LOG_LEVEL":     &config.LogLevel,
	} {
		setString(dst, os.Getenv(key))
	}

	if v := os.Getenv("CRM_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CRM_RATE_LIMIT: %w", err)
		}
		config.RateLimit = f
	}
	if v := os.Getenv("CRM_MAX_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CRM_MAX_PAGE_SIZE: %w", err)
		}
		config.MaxPageSize = n
	}
	return nil
}
