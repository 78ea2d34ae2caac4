package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Kakeibo"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"kakeibo"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	Ledger struct {
		// EnforceNonNegative rejects expenses that would overdraw the
		// source account.
		EnforceNonNegative bool `envconfig:"LEDGER_ENFORCE_NON_NEGATIVE" default:"false"`
	}

	Reconcile struct {
		// Tolerance is the per-account drift, in minor units, below which
		// no finding is reported.
		Tolerance         int64 `envconfig:"RECONCILE_TOLERANCE" default:"1"`
		CriticalTolerance int64 `envconfig:"RECONCILE_CRITICAL_TOLERANCE" default:"100"`
		PageSize          int   `envconfig:"RECONCILE_PAGE_SIZE" default:"500"`
		// Interval enables scheduled full checks when greater than zero.
		Interval time.Duration `envconfig:"RECONCILE_INTERVAL" default:"0"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
