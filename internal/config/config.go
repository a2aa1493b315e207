package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Service names accepted in SERVICES and by the serve command
const (
	ServiceRegistry = "registry"
	ServiceBidding  = "bidding"
	ServiceSearch   = "search"
)

// Config holds process configuration loaded from the environment
type Config struct {
	Port     string   `env:"PORT" envDefault:"8080"`
	Services []string `env:"SERVICES" envSeparator:"," envDefault:"registry,bidding,search"`
	LogLevel string   `env:"LOG_LEVEL" envDefault:"info"`

	DBDriver string `env:"DB_DRIVER" envDefault:"memory"`
	DBDSN    string `env:"DB_DSN" envDefault:"auction.db"`

	EventBus     string `env:"EVENT_BUS" envDefault:"memory"`
	RedisAddr    string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisStream  string `env:"REDIS_STREAM" envDefault:"auction-events"`
	ConsumerName string `env:"CONSUMER_NAME" envDefault:"auction-1"`

	SweepInterval    time.Duration `env:"SWEEP_INTERVAL" envDefault:"5s"`
	BackfillInterval time.Duration `env:"BACKFILL_INTERVAL" envDefault:"3s"`
	ResyncInterval   time.Duration `env:"RESYNC_INTERVAL" envDefault:"1m"`
	RegistryURL      string        `env:"REGISTRY_URL" envDefault:"http://localhost:8080"`
	BidRetryAttempts uint          `env:"BID_RETRY_ATTEMPTS" envDefault:"3"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated settings and intervals.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.EventBus {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unsupported EVENT_BUS %q", c.EventBus)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("config: SWEEP_INTERVAL must be positive")
	}
	if c.BackfillInterval <= 0 {
		return fmt.Errorf("config: BACKFILL_INTERVAL must be positive")
	}
	if c.ResyncInterval < 0 {
		return fmt.Errorf("config: RESYNC_INTERVAL must not be negative")
	}
	for _, s := range c.Services {
		switch strings.TrimSpace(s) {
		case ServiceRegistry, ServiceBidding, ServiceSearch:
		default:
			return fmt.Errorf("config: unknown service %q", s)
		}
	}
	return nil
}

// Enabled reports whether the named service should run in this process.
func (c Config) Enabled(service string) bool {
	for _, s := range c.Services {
		if strings.TrimSpace(s) == service {
			return true
		}
	}
	return false
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}
