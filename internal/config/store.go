package config

import (
	"fmt"
	"time"
)

// StoreConfig configures the document store orchestration layer.
type StoreConfig struct {
	// Prefix frames ordinary document payloads. The snapshot prefix is
	// derived from it and always tested first during decode dispatch.
	Prefix string `yaml:"prefix"`

	// MaxRetries bounds send attempts against transient channel errors.
	MaxRetries int `yaml:"max_retries"`

	// RetryDelay is the base of the linear backoff (attempt * delay).
	RetryDelay time.Duration `yaml:"retry_delay"`

	// InsertDelay is the pause between sequential insertMany sends.
	// It throttles against the channel's send-rate ceiling and must
	// not be removed in favor of concurrent sends.
	InsertDelay time.Duration `yaml:"insert_delay"`
}

// DefaultStoreConfig returns default store configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Prefix:      "TDB:",
		MaxRetries:  3,
		RetryDelay:  500 * time.Millisecond,
		InsertDelay: 100 * time.Millisecond,
	}
}

// ApplyDefaults fills in missing values with defaults.
func (c *StoreConfig) ApplyDefaults() {
	def := DefaultStoreConfig()
	if c.Prefix == "" {
		c.Prefix = def.Prefix
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = def.RetryDelay
	}
	if c.InsertDelay == 0 {
		c.InsertDelay = def.InsertDelay
	}
}

// Validate validates the configuration.
func (c *StoreConfig) Validate() error {
	if c.Prefix == "" {
		return fmt.Errorf("prefix cannot be empty")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.RetryDelay < 0 || c.InsertDelay < 0 {
		return fmt.Errorf("delays cannot be negative")
	}
	return nil
}
