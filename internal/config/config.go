package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type GeminiConfig struct {
	APIKey         string        `yaml:"api_key"`
	BaseURL        string        `yaml:"base_url"`
	ResponderModel string        `yaml:"responder_model"`
	EvaluatorModel string        `yaml:"evaluator_model"`
	Timeout        time.Duration `yaml:"timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg
}

// Load reads configuration from a file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if c.Gemini.ResponderModel == "" {
		c.Gemini.ResponderModel = "gemini-2.5-flash"
	}
	if c.Gemini.EvaluatorModel == "" {
		c.Gemini.EvaluatorModel = "gemini-flash-lite-latest"
	}
	if c.Gemini.Timeout <= 0 {
		c.Gemini.Timeout = 60 * time.Second
	}
	if c.Database.Path == "" {
		c.Database.Path = "prepdeck.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// applyEnv overrides file values with environment variables if present.
func (c *Config) applyEnv() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Gemini.APIKey = key
	}
	if addr := os.Getenv("PREPDECK_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if path := os.Getenv("PREPDECK_DB"); path != "" {
		c.Database.Path = path
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Gemini.BaseURL == "" {
		return fmt.Errorf("gemini.base_url is required")
	}
	return nil
}
