// Package config provides configuration management for landscaper.
//
// This package handles loading configuration from multiple sources:
//   - YAML configuration files
//   - Environment variables (with LANDSCAPER_ prefix)
//   - Default values
//
// # Configuration Sources Priority
//
// Configuration is loaded in the following order (later sources override earlier ones):
//  1. Default values (hardcoded)
//  2. Configuration files (./landscaper.yaml, ~/.landscaper/landscaper.yaml, /etc/landscaper/landscaper.yaml)
//  3. Environment variables (LANDSCAPER_ prefix)
//
// # Usage Example
//
//	cfg, err := config.Load("landscaper.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("default client: %s\n", cfg.Engine.DefaultClient)
//
// # Environment Variables
//
// Environment variables override all other configuration sources.
// Use LANDSCAPER_ prefix and underscores for nested keys:
//   - LANDSCAPER_ENGINE_DEFAULT_CLIENT=default
//   - LANDSCAPER_LOGGING_LEVEL=debug
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure for landscaper.
type Config struct {
	// Engine contains defaults for loading maps and talking to clients.
	Engine EngineConfig `mapstructure:"engine"`

	// Logging contains logging and observability settings.
	Logging LoggingConfig `mapstructure:"logging"`
}

// EngineConfig contains defaults the CLI falls back to when a flag is not
// given explicitly.
type EngineConfig struct {
	// MapFile is the default container-landscape document path.
	MapFile string `mapstructure:"map_file"`

	// DefaultClient is the client name used when a map declares none.
	DefaultClient string `mapstructure:"default_client"`

	// ClientTimeout is the default per-request timeout for a Docker client
	// that does not override it.
	ClientTimeout time.Duration `mapstructure:"client_timeout"`

	// StopTimeout is the default grace period before a stop escalates to
	// SIGKILL, for containers that do not set stop_timeout.
	StopTimeout time.Duration `mapstructure:"stop_timeout"`

	// CheckExecMode controls how strictly update() matches RESTART exec
	// commands against live processes: FULL, PARTIAL, or NONE.
	CheckExecMode string `mapstructure:"check_exec_mode"`

	// SkipLimitReset suppresses the host-config patch the update generator
	// would otherwise emit when only resource limits have drifted.
	SkipLimitReset bool `mapstructure:"skip_limit_reset"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `mapstructure:"level"`

	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
}

var cfg *Config

// Load reads configuration from a file and environment variables. If
// cfgFile is empty, it searches for landscaper.yaml in standard locations.
// A config file that does not exist is not an error: defaults and
// environment variables are used.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (LANDSCAPER_ prefix)
//  2. Configuration file
//  3. Default values
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("landscaper")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.landscaper")
		v.AddConfigPath("/etc/landscaper")
	}

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("LANDSCAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.map_file", "landscape.yaml")
	v.SetDefault("engine.default_client", "default")
	v.SetDefault("engine.client_timeout", "60s")
	v.SetDefault("engine.stop_timeout", "10s")
	v.SetDefault("engine.check_exec_mode", "FULL")
	v.SetDefault("engine.skip_limit_reset", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

func validate(cfg *Config) error {
	switch cfg.Engine.CheckExecMode {
	case "FULL", "PARTIAL", "NONE":
	default:
		return fmt.Errorf("invalid engine.check_exec_mode: %q", cfg.Engine.CheckExecMode)
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %q", cfg.Logging.Level)
	}
	return nil
}

// Get returns the most recently loaded configuration, or nil if Load has
// not been called yet.
func Get() *Config {
	return cfg
}
