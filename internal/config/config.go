// Package config loads arbiter configuration.
//
// Precedence (highest to lowest):
//  1. Environment variables prefixed with ARBITER_
//  2. YAML config file
//  3. Built-in defaults
package config

import (
	"fmt"

	"github.com/roach88/arbiter/internal/engine"
	"github.com/roach88/arbiter/internal/logging"
	"github.com/roach88/arbiter/internal/memory"
)

// DefaultDatabase is the SQLite file used when none is configured.
const DefaultDatabase = "arbiter.db"

// Config is the complete arbiter configuration.
type Config struct {
	// Database is the SQLite file holding catalog, log and memory state.
	Database string `koanf:"database" yaml:"database"`

	// Seed is a CUE file applied to an empty database. Empty selects the
	// built-in seed.
	Seed string `koanf:"seed" yaml:"seed"`

	Log     logging.Config `koanf:"log" yaml:"log"`
	Policy  engine.Policy  `koanf:"policy" yaml:"policy"`
	Memory  memory.Policy  `koanf:"memory" yaml:"memory"`
	Metrics MetricsConfig  `koanf:"metrics" yaml:"metrics"`
}

// MetricsConfig controls metric export.
type MetricsConfig struct {
	// Textfile, when set, receives the registry in Prometheus text format
	// after every command, for collection by a node exporter.
	Textfile string `koanf:"textfile" yaml:"textfile"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DefaultDatabase,
		Log:      logging.DefaultConfig(),
		Policy:   engine.DefaultPolicy(),
		Memory:   memory.DefaultPolicy(),
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database path is required")
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.Policy.Validate(); err != nil {
		return err
	}
	if err := c.Memory.Validate(); err != nil {
		return err
	}
	return nil
}
