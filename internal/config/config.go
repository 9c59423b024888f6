package config

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Channel ChannelConfig `yaml:"channel"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoadConfig loads configuration from files and environment variables.
// Order: defaults -> config.yml -> config.local.yml -> env overrides -> validate.
func LoadConfig() *Config {
	cfg := &Config{
		Channel: DefaultChannelConfig(),
		Store:   DefaultStoreConfig(),
		Logging: DefaultLoggingConfig(),
	}

	loadFile("config/config.yml", cfg)
	loadFile("config/config.local.yml", cfg)

	cfg.Channel.ApplyDefaults()
	cfg.Store.ApplyDefaults()
	cfg.Logging.ApplyDefaults()

	cfg.Channel.ApplyEnvOverrides()
	cfg.Logging.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	return cfg
}

// Validate validates every section.
func (c *Config) Validate() error {
	if err := c.Channel.Validate(); err != nil {
		return fmt.Errorf("channel: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

func loadFile(filename string, cfg *Config) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return // File doesn't exist, skip
		}
		log.Printf("Warning: Error reading %s: %v", filename, err)
		return
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Printf("Warning: Error parsing %s: %v", filename, err)
	}
}
