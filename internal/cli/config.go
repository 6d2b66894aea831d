package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the junction server/CLI configuration. Values come from the YAML
// config file, overridden by JUNCTION_* environment variables.
type Config struct {
	Listen   string         `yaml:"listen" env:"JUNCTION_LISTEN"`
	LogLevel string         `yaml:"log_level" env:"JUNCTION_LOG_LEVEL"`
	Sources  []SourceConfig `yaml:"sources"`
}

// SourceConfig declares one provider. Type selects the adapter; Options are
// decoded by the adapter-specific option struct.
type SourceConfig struct {
	Name    string         `yaml:"name"`
	Type    string         `yaml:"type"`
	Options map[string]any `yaml:"options"`
}

// Per-adapter option shapes, decoded from SourceConfig.Options.
type staticOptions struct {
	Endpoints []endpointConfig `mapstructure:"endpoints"`
}

type endpointConfig struct {
	Name     string            `mapstructure:"name"`
	URL      string            `mapstructure:"url"`
	Metadata map[string]string `mapstructure:"metadata"`
}

type fileOptions struct {
	Path         string        `mapstructure:"path"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type redisOptions struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Listen:   ":8080",
		LogLevel: "info",
	}
}

// LoadConfig reads the YAML config at path (skipped when path is empty) and
// applies environment overrides on top.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("applying environment overrides: %w", err)
	}
	return cfg, nil
}
