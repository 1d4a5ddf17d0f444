// Package config defines service configuration and its defaults.
package config

import (
	"fmt"
	"time"

	"github.com/okian/almog/internal/domain/aggregate"
	"github.com/okian/almog/internal/domain/tier"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// ShutdownTimeoutMS bounds graceful shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`

	// StoreDriver selects the session store: memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver"`
	// StoreDSN is the driver connection string; unused for memory.
	StoreDSN string `koanf:"store_dsn"`
	// SessionsTable names the table holding session rows.
	SessionsTable string `koanf:"sessions_table"`
	// PageSize is the LIMIT of each bulk read page.
	PageSize int `koanf:"page_size"`

	// BreakerTimeoutMS is how long the store breaker stays open.
	BreakerTimeoutMS int `koanf:"breaker_timeout_ms"`
	// BreakerFailureThreshold is the consecutive failure count that opens it.
	BreakerFailureThreshold int `koanf:"breaker_failure_threshold"`

	// ExcludedPlayers are dropped from every pipeline run (substring match).
	ExcludedPlayers []string `koanf:"excluded_players"`
	// NotesPolicy is "first" or "concat".
	NotesPolicy string `koanf:"notes_policy"`
	// DistanceTierPolicy and IntensityTierPolicy name tier policies.
	DistanceTierPolicy  string `koanf:"distance_tier_policy"`
	IntensityTierPolicy string `koanf:"intensity_tier_policy"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		ShutdownTimeoutMS:       5000,
		StoreDriver:             DriverMemory,
		SessionsTable:           "sessions",
		PageSize:                1000,
		BreakerTimeoutMS:        30_000,
		BreakerFailureThreshold: 5,
		ExcludedPlayers:         []string{},
		NotesPolicy:             string(aggregate.FirstNonEmpty),
		DistanceTierPolicy:      tier.Strict20100Name,
		IntensityTierPolicy:     tier.Graded8597Name,
	}
}

// BreakerTimeout returns BreakerTimeoutMS as a duration.
func (c *Config) BreakerTimeout() time.Duration {
	return time.Duration(c.BreakerTimeoutMS) * time.Millisecond
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// Validate checks field values and cross-field requirements.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.StoreDSN == "" {
			return fmt.Errorf("%w: store_dsn is required for %s", ErrInvalidConfig, c.StoreDriver)
		}
	default:
		return fmt.Errorf("%w: store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("%w: page_size must be positive", ErrInvalidConfig)
	}
	if c.BreakerTimeoutMS <= 0 || c.BreakerFailureThreshold <= 0 {
		return fmt.Errorf("%w: breaker settings must be positive", ErrInvalidConfig)
	}
	if !aggregate.NotesPolicy(c.NotesPolicy).Valid() {
		return fmt.Errorf("%w: notes_policy %q", ErrInvalidConfig, c.NotesPolicy)
	}
	for _, name := range []string{c.DistanceTierPolicy, c.IntensityTierPolicy} {
		if _, err := tier.Lookup(name); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}
