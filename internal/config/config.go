package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/liamcoop/prospects/internal/logger"
	"github.com/liamcoop/prospects/policy"
)

// Config is the service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Intake   IntakeConfig   `yaml:"intake"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	// BreakerFailures consecutive storage failures open the circuit
	// breaker; zero disables it.
	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout"`
}

// RedisConfig enables the distributed submission lock when Addr is set.
type RedisConfig struct {
	Addr           string        `yaml:"addr"`
	LockExpiry     time.Duration `yaml:"lock_expiry"`
	LockTries      int           `yaml:"lock_tries"`
	LockRetryDelay time.Duration `yaml:"lock_retry_delay"`
	// SharedLookupCache keeps duplicate lookups in Redis instead of process
	// memory.
	SharedLookupCache bool `yaml:"shared_lookup_cache"`
}

type IntakeConfig struct {
	// BusinessLocation is the IANA zone "today" is computed in.
	BusinessLocation string `yaml:"business_location"`
	DueDays          int    `yaml:"due_days"`
	// LookupCacheTTL caches duplicate lookups; zero (the default) disables
	// the cache. With redis.addr set the cache must be the shared one.
	LookupCacheTTL time.Duration  `yaml:"lookup_cache_ttl"`
	Rules          []*policy.Rule `yaml:"rules"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Redis: RedisConfig{
			LockExpiry:     10 * time.Second,
			LockTries:      20,
			LockRetryDelay: 100 * time.Millisecond,
		},
		Intake: IntakeConfig{
			BusinessLocation: "UTC",
			DueDays:          5,
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "json",
		},
	}
}

// Load reads an optional YAML file over the defaults and applies
// environment overrides. An empty path falls back to INTAKE_CONFIG; no
// file at all is fine.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("INTAKE_CONFIG")
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	return nil
}

// Validate rejects settings the service can't run with.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.IdleTimeout <= 0 {
		errs = append(errs, errors.New("server timeouts must be positive"))
	}
	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		errs = append(errs, errors.New("database connection limits cannot be negative"))
	}
	if c.Database.BreakerFailures > 0 && c.Database.BreakerTimeout <= 0 {
		errs = append(errs, errors.New("database.breaker_timeout must be positive"))
	}
	if c.Redis.Addr != "" && c.Redis.LockExpiry <= 0 {
		errs = append(errs, errors.New("redis.lock_expiry must be positive"))
	}
	if c.Redis.SharedLookupCache && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.shared_lookup_cache requires redis.addr"))
	}
	if _, err := time.LoadLocation(c.Intake.BusinessLocation); err != nil {
		errs = append(errs, fmt.Errorf("intake.business_location: %w", err))
	}
	if c.Intake.DueDays < 1 {
		errs = append(errs, errors.New("intake.due_days must be at least 1"))
	}
	if c.Intake.LookupCacheTTL < 0 {
		errs = append(errs, errors.New("intake.lookup_cache_ttl cannot be negative"))
	}
	if c.Intake.LookupCacheTTL > 0 && c.Redis.Addr != "" && !c.Redis.SharedLookupCache {
		// instances sharing a lock must not each keep a private cache
		errs = append(errs, errors.New("intake.lookup_cache_ttl with redis.addr requires redis.shared_lookup_cache"))
	}
	for _, r := range c.Intake.Rules {
		if err := policy.ValidateRule(r); err != nil {
			errs = append(errs, fmt.Errorf("intake.rules: %w", err))
		}
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// Location returns the parsed business location. Call after Validate.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Intake.BusinessLocation)
	if err != nil {
		return time.UTC
	}
	return loc
}
