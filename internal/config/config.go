// Package config loads engine configuration from a TOML file with
// environment-variable overrides for the common deployment knobs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Engine   EngineConfig   `toml:"engine"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type EngineConfig struct {
	// SweepInterval is how often the daemon runs the settlement sweep.
	SweepInterval string `toml:"sweep_interval"`
	// TierInterval is how often the daemon checks whether the tier batch is due.
	TierInterval string `toml:"tier_interval"`
	// SweepBatchSize bounds each sweep transaction.
	SweepBatchSize int `toml:"sweep_batch_size"`
	// MetricsEnabled exposes /metrics when true.
	MetricsEnabled bool `toml:"metrics_enabled"`
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Path: "commissions.db",
		},
		Engine: EngineConfig{
			SweepInterval:  "24h",
			TierInterval:   "24h",
			SweepBatchSize: 100,
			MetricsEnabled: true,
		},
	}
}

// Load reads the TOML file at path into the defaults. A missing file is not
// an error; defaults plus environment overrides apply.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			cfg.Server.Port = p
		}
	}
	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	return cfg, nil
}

// SweepInterval parses the configured sweep interval, defaulting to daily.
func (c *EngineConfig) SweepIntervalDuration() time.Duration {
	return parseInterval(c.SweepInterval, 24*time.Hour)
}

// TierIntervalDuration parses the configured tier check interval.
func (c *EngineConfig) TierIntervalDuration() time.Duration {
	return parseInterval(c.TierInterval, 24*time.Hour)
}

func parseInterval(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
