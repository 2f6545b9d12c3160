// Package config provides the 12-factor runtime configuration: values come
// from environment variables (with an optional .env file for development)
// and are checked by a lightweight validator that returns a list of issues
// rather than failing on the first problem.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the resolved runtime configuration.
type Config struct {
	// DatabaseDSN is the pgx connection string.
	DatabaseDSN string `env:"DATABASE_DSN"`

	// ListenAddr is the HTTP API bind address.
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// BlobDir is where uploads and error reports are stored.
	BlobDir string `env:"BLOB_DIR" envDefault:"data/blobs"`

	// PageSize caps one search result page.
	PageSize int `env:"PAGE_SIZE" envDefault:"50"`

	// ValidateWorkers is the validation fan-out width; 0 means GOMAXPROCS.
	ValidateWorkers int `env:"VALIDATE_WORKERS" envDefault:"0"`

	// PushgatewayURL enables the Prometheus Pushgateway metrics backend
	// when non-empty.
	PushgatewayURL string `env:"PUSHGATEWAY_URL"`

	// MetricsJob is the Pushgateway job label.
	MetricsJob string `env:"METRICS_JOB" envDefault:"cadimport"`

	// LogLevel is a logrus level name.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads .env (when present) and the process environment.
func Load() (Config, error) {
	// A missing .env is fine; the environment may be fully provisioned.
	_ = godotenv.Load()

	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if issues := c.Validate(); len(issues) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(issues, "; "))
	}
	return c, nil
}

// Validate performs static checks and returns every issue found.
func (c Config) Validate() []string {
	var issues []string
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		issues = append(issues, "DATABASE_DSN must not be empty")
	}
	if c.PageSize <= 0 {
		issues = append(issues, fmt.Sprintf("PAGE_SIZE=%d; must be positive", c.PageSize))
	}
	if c.ValidateWorkers < 0 {
		issues = append(issues, "VALIDATE_WORKERS must not be negative")
	}
	if c.PushgatewayURL != "" && strings.TrimSpace(c.MetricsJob) == "" {
		issues = append(issues, "METRICS_JOB must not be empty when PUSHGATEWAY_URL is set")
	}
	return issues
}
