// Package config loads hooksink configuration from the environment or from
// an optional YAML file with ${VAR} expansion.
package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Defaults applied when neither the environment nor the config file set a
// value.
const (
	DefaultListen        = "127.0.0.1:8080"
	DefaultWebhookPath   = "/hooks/github"
	DefaultStoreCapacity = 200
	DefaultMaxBodySize   = 1048576 // 1 MB
)

// Config is the complete hooksink configuration.
//
// Secret is the shared HMAC secret for webhook signature verification; an
// empty value disables verification (with a startup warning). EventsToken
// gates the read endpoint; empty disables the gate.
type Config struct {
	Listen        string `yaml:"listen" env:"HOOKSINK_LISTEN"`
	WebhookPath   string `yaml:"webhook_path" env:"HOOKSINK_WEBHOOK_PATH"`
	Secret        string `yaml:"secret" env:"HOOKSINK_SECRET"`
	EventsToken   string `yaml:"events_token" env:"HOOKSINK_EVENTS_TOKEN"`
	StoreCapacity int    `yaml:"store_capacity" env:"HOOKSINK_STORE_CAPACITY"`
	MaxBodySize   int64  `yaml:"max_body_size" env:"HOOKSINK_MAX_BODY_SIZE"`
	LogLevel      string `yaml:"log_level" env:"HOOKSINK_LOG_LEVEL"`
	LogFormat     string `yaml:"log_format" env:"HOOKSINK_LOG_FORMAT"`
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// FromEnv builds configuration from environment variables only.
// GITHUB_WEBHOOK_SECRET and EVENTS_TOKEN are honored as legacy names when
// the HOOKSINK_ variables are unset.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.Secret == "" {
		cfg.Secret = os.Getenv("GITHUB_WEBHOOK_SECRET")
	}
	if cfg.EventsToken == "" {
		cfg.EventsToken = os.Getenv("EVENTS_TOKEN")
	}

	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads configuration from a YAML file. ${VAR} references in the file
// are expanded from the environment before parsing, so secrets can live in
// the environment while structure lives in the file.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	expanded := envVarPattern.ReplaceAllStringFunc(string(data), func(m string) string {
		name := envVarPattern.FindStringSubmatch(m)[1]
		return os.Getenv(name)
	})

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", configPath, err)
	}

	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", configPath, err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.WebhookPath == "" {
		cfg.WebhookPath = DefaultWebhookPath
	}
	if cfg.StoreCapacity == 0 {
		cfg.StoreCapacity = DefaultStoreCapacity
	}
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "INFO"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
}

func validate(cfg *Config) error {
	if cfg.StoreCapacity < 0 {
		return fmt.Errorf("store_capacity must be positive, got %d", cfg.StoreCapacity)
	}
	if cfg.MaxBodySize < 0 {
		return fmt.Errorf("max_body_size must be positive, got %d", cfg.MaxBodySize)
	}
	return nil
}
