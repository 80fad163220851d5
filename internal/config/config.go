// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/ianibaeva/explore-with-me/internal/database"
	"github.com/ianibaeva/explore-with-me/internal/logging"
	"github.com/ianibaeva/explore-with-me/internal/telemetry"
)

// Store engines.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Addr            string        `env:"EWM_HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"EWM_HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"EWM_HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"EWM_HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"EWM_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Config is the full service configuration.
type Config struct {
	HTTP       HTTPConfig
	Store      string `env:"EWM_STORE" envDefault:"postgres"`
	SQLitePath string `env:"EWM_SQLITE_PATH"`
	DB         database.Config
	Log        logging.Config
	Telemetry  telemetry.Config
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	switch c.Store {
	case StorePostgres:
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("EWM_SQLITE_PATH is required when EWM_STORE=%s", StoreSQLite)
		}
	default:
		return fmt.Errorf("unknown EWM_STORE %q", c.Store)
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("EWM_HTTP_ADDR is required")
	}
	if c.Telemetry.Enabled && c.Telemetry.CollectorAddr == "" {
		return fmt.Errorf("OTEL_COLLECTOR_ADDR is required when OTEL_ENABLED=true")
	}
	return nil
}
