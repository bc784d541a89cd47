package rpcconn

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the YAML-loadable configuration for a Connection.
type Config struct {
	URL              string        `yaml:"url"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout"`
	StaleTimeout     time.Duration `yaml:"stale_timeout"`
	ReconnectPerSec  float64       `yaml:"reconnect_per_second"`
	Logging          LoggingConfig `yaml:"logging"`
	MetricsListeAddr string        `yaml:"metrics_listen_addr"`
}

// LoggingConfig controls the zerolog sink used across the package.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)(:-([^}]*))?\}`)

// substituteEnvVars replaces ${VAR} and ${VAR:-default} occurrences in
// input with the corresponding environment variable, falling back to the
// supplied default (or leaving the placeholder untouched if neither is
// available).
func substituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		name, def := groups[1], groups[3]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		if groups[2] != "" {
			return def
		}
		return match
	})
}

// LoadConfig reads, env-substitutes, and parses a Connection's YAML
// config file, applying the package defaults for any zero-value field.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rpcconn: read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(substituteEnvVars(string(raw))), &cfg); err != nil {
		return nil, fmt.Errorf("rpcconn: parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if cfg.URL == "" {
		return nil, fmt.Errorf("rpcconn: config %s: url is required", path)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.StaleTimeout == 0 {
		c.StaleTimeout = 60 * time.Second
	}
	if c.ReconnectPerSec == 0 {
		c.ReconnectPerSec = 0.2 // one attempt per 5 seconds
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}
