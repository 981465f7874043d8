// Package config loads the resist runtime configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// RESIST_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aretw0/resist/internal/logging"
	"github.com/caarlos0/env/v11"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "RESIST_"

// Config is the full runtime configuration.
type Config struct {
	LogLevel            string        `mapstructure:"log_level" env:"LOG_LEVEL"`
	Locale              string        `mapstructure:"locale" env:"LOCALE"`
	TickInterval        time.Duration `mapstructure:"tick_interval" env:"TICK_INTERVAL"`
	HandRangeFactor     float64       `mapstructure:"hand_range_factor" env:"HAND_RANGE_FACTOR"`
	SwallowedMultiplier float64       `mapstructure:"swallowed_multiplier" env:"SWALLOWED_MULTIPLIER"`
	MaxMassDisadvantage float64       `mapstructure:"max_mass_disadvantage" env:"MAX_MASS_DISADVANTAGE"`
	DefaultBaseResist   time.Duration `mapstructure:"default_base_resist" env:"DEFAULT_BASE_RESIST"`

	HTTP     HTTPConfig     `mapstructure:"http" envPrefix:"HTTP_"`
	Metrics  MetricsConfig  `mapstructure:"metrics" envPrefix:"METRICS_"`
	State    StateConfig    `mapstructure:"state" envPrefix:"STATE_"`
	Redis    RedisConfig    `mapstructure:"redis" envPrefix:"REDIS_"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" envPrefix:"SQLITE_"`
	Profiles ProfilesConfig `mapstructure:"profiles" envPrefix:"PROFILES_"`
}

// HTTPConfig is the listen address of the HTTP API.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" env:"ADDR"`
}

// MetricsConfig exposes /metrics on the HTTP API when Enabled.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" env:"ENABLED"`
}

// StateConfig keeps escape records as JSON files in Dir when set. Redis wins when both are set.
type StateConfig struct {
	Dir string `mapstructure:"dir" env:"DIR"`
}

// RedisConfig enables the redis state store and locker when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" env:"ADDR"`
	Password string        `mapstructure:"password" env:"PASSWORD"`
	DB       int           `mapstructure:"db" env:"DB"`
	Prefix   string        `mapstructure:"prefix" env:"PREFIX"`
	TTL      time.Duration `mapstructure:"ttl" env:"TTL"`
}

// SQLiteConfig enables the attempt journal when Path is set.
type SQLiteConfig struct {
	Path string `mapstructure:"path" env:"PATH"`
}

// ProfilesConfig points at a loam document directory of entity profiles.
type ProfilesConfig struct {
	Dir string `mapstructure:"dir" env:"DIR"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		LogLevel:            "info",
		Locale:              "en-US",
		TickInterval:        100 * time.Millisecond,
		HandRangeFactor:     3,
		SwallowedMultiplier: 5,
		MaxMassDisadvantage: 6,
		DefaultBaseResist:   5 * time.Second,
		HTTP:                HTTPConfig{Addr: ":8080"},
		Metrics:             MetricsConfig{Enabled: true},
	}
}

// Load reads path (optional) and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := Decode(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode merges YAML data into cfg. Keys absent from data keep their value.
func Decode(data []byte, cfg *Config) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}
	if raw == nil {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// Validate rejects values the engine cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval))
	}
	if c.HandRangeFactor <= 0 {
		errs = append(errs, fmt.Errorf("hand_range_factor must be positive, got %v", c.HandRangeFactor))
	}
	if c.SwallowedMultiplier <= 0 {
		errs = append(errs, fmt.Errorf("swallowed_multiplier must be positive, got %v", c.SwallowedMultiplier))
	}
	if c.MaxMassDisadvantage < 1 {
		errs = append(errs, fmt.Errorf("max_mass_disadvantage must be at least 1, got %v", c.MaxMassDisadvantage))
	}
	if c.DefaultBaseResist < 0 {
		errs = append(errs, fmt.Errorf("default_base_resist must not be negative, got %s", c.DefaultBaseResist))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
