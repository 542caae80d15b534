package config

import (
	"fmt"
	"strings"

	"github.com/rediwo/redi-eager/include"
	"github.com/rediwo/redi-eager/logger"
)

// Config is the runtime configuration of the CLI and script runner.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Include  IncludeConfig  `mapstructure:"include"`
	Log      LogConfig      `mapstructure:"log"`
	Models   ModelsConfig   `mapstructure:"models"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type DatabaseConfig struct {
	URI string `mapstructure:"uri"`
	// InqLimit caps keys per batched include query. 0 defers to the URI
	// parameter or the backend limit.
	InqLimit int `mapstructure:"inq_limit"`
}

type IncludeConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type ModelsConfig struct {
	// Path is a JSON file of model definitions.
	Path string `mapstructure:"path"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Validate checks value ranges after loading.
func (c *Config) Validate() error {
	var errs []string
	if c.Database.URI == "" {
		errs = append(errs, "database.uri is required")
	}
	if c.Database.InqLimit < 0 {
		errs = append(errs, fmt.Sprintf("database.inq_limit must not be negative, got %d", c.Database.InqLimit))
	}
	if c.Include.MaxConcurrency < 1 {
		errs = append(errs, fmt.Sprintf("include.max_concurrency must be at least 1, got %d", c.Include.MaxConcurrency))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error", "none", "off", "silent":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q is not one of debug, info, warn, error, none", c.Log.Level))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// LogLevel converts the configured level name.
func (c *Config) LogLevel() logger.LogLevel {
	return logger.ParseLogLevel(c.Log.Level)
}

// IncludeOptions returns resolver options for the configured limits.
func (c *Config) IncludeOptions() []include.Option {
	opts := []include.Option{include.WithConcurrency(c.Include.MaxConcurrency)}
	if c.Database.InqLimit > 0 {
		opts = append(opts, include.WithInqLimit(c.Database.InqLimit))
	}
	return opts
}
