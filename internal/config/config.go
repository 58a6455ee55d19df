package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every variable name, e.g. TAGWARDEN_HTTP_ADDR.
const EnvPrefix = "TAGWARDEN"

const (
	EnvDev  = "dev"
	EnvProd = "prod"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	Env      string `envconfig:"ENV" default:"dev"` // "dev" | "prod"

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"` // "json" | "console"

	// DB
	DBDriver  string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBPath    string `envconfig:"DB_PATH" default:"./data/tagwarden.db"`
	DBDSN     string `envconfig:"DB_DSN"`
	DBWriters int    `envconfig:"DB_WRITERS" default:"4"` // ignored for sqlite (always 1)
	SeedDev   bool   `envconfig:"SEED_DEV" default:"false"`

	// Heartbeat retention
	HeartbeatRetentionDays int `envconfig:"HEARTBEAT_RETENTION_DAYS" default:"30"` // 0 = keep forever
	PruneIntervalHours     int `envconfig:"PRUNE_INTERVAL_HOURS" default:"6"`

	MetricsEnabled bool `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env != EnvDev && c.Env != EnvProd {
		// fail-soft: treat unknown as dev
		c.Env = EnvDev
	}
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	if c.HeartbeatRetentionDays < 0 {
		c.HeartbeatRetentionDays = 0
	}
	if c.PruneIntervalHours <= 0 {
		c.PruneIntervalHours = 6
	}
	if c.DBWriters <= 0 {
		c.DBWriters = 1
	}
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			return fmt.Errorf("TAGWARDEN_DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.DBDSN) == "" {
			return fmt.Errorf("TAGWARDEN_DB_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported TAGWARDEN_DB_DRIVER %q", c.DBDriver)
	}
	return nil
}

func (c Config) IsDev() bool { return c.Env == EnvDev }
