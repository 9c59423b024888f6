package config

import (
	"fmt"
	"os"
)

// Channel provider names.
const (
	ProviderMemory = "memory"
	ProviderNATS   = "nats"
)

// ChannelConfig selects and configures the message channel backing the
// store.
type ChannelConfig struct {
	Provider string `yaml:"provider"` // memory, nats

	// MaxPayload is the channel's maximum message size in bytes.
	// Documents whose encoded payload exceeds it are rejected.
	MaxPayload int `yaml:"max_payload"`

	NATS NATSConfig `yaml:"nats"`
}

// NATSConfig configures the JetStream-backed channel.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Stream  string `yaml:"stream"`
	Subject string `yaml:"subject"`
}

// DefaultChannelConfig returns default channel configuration.
func DefaultChannelConfig() ChannelConfig {
	return ChannelConfig{
		Provider:   ProviderMemory,
		MaxPayload: 4096,
		NATS: NATSConfig{
			URL:     "nats://localhost:4222",
			Stream:  "TELEDB",
			Subject: "teledb.messages",
		},
	}
}

// ApplyDefaults fills in missing values with defaults.
func (c *ChannelConfig) ApplyDefaults() {
	def := DefaultChannelConfig()
	if c.Provider == "" {
		c.Provider = def.Provider
	}
	if c.MaxPayload == 0 {
		c.MaxPayload = def.MaxPayload
	}
	if c.NATS.URL == "" {
		c.NATS.URL = def.NATS.URL
	}
	if c.NATS.Stream == "" {
		c.NATS.Stream = def.NATS.Stream
	}
	if c.NATS.Subject == "" {
		c.NATS.Subject = def.NATS.Subject
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *ChannelConfig) ApplyEnvOverrides() {
	if v := os.Getenv("TELEDB_CHANNEL_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("TELEDB_NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("TELEDB_NATS_STREAM"); v != "" {
		c.NATS.Stream = v
	}
}

// Validate validates the configuration.
func (c *ChannelConfig) Validate() error {
	switch c.Provider {
	case ProviderMemory, ProviderNATS:
	default:
		return fmt.Errorf("invalid channel provider: %s (must be memory or nats)", c.Provider)
	}
	if c.MaxPayload <= 0 {
		return fmt.Errorf("max_payload must be positive, got %d", c.MaxPayload)
	}
	if c.Provider == ProviderNATS && c.NATS.URL == "" {
		return fmt.Errorf("nats url cannot be empty")
	}
	return nil
}
