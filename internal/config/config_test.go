package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := &Config{
		Channel: DefaultChannelConfig(),
		Store:   DefaultStoreConfig(),
		Logging: DefaultLoggingConfig(),
	}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ProviderMemory, cfg.Channel.Provider)
	assert.Equal(t, 4096, cfg.Channel.MaxPayload)
	assert.Equal(t, "TDB:", cfg.Store.Prefix)
	assert.Equal(t, 3, cfg.Store.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Store.RetryDelay)
}

func TestChannelValidate(t *testing.T) {
	cfg := DefaultChannelConfig()
	cfg.Provider = "carrier-pigeon"
	assert.Error(t, cfg.Validate())

	cfg = DefaultChannelConfig()
	cfg.MaxPayload = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultChannelConfig()
	cfg.Provider = ProviderNATS
	cfg.NATS.URL = ""
	assert.Error(t, cfg.Validate())
}

func TestStoreApplyDefaults(t *testing.T) {
	cfg := StoreConfig{}
	cfg.ApplyDefaults()
	assert.Equal(t, "TDB:", cfg.Prefix)
	assert.Equal(t, 100*time.Millisecond, cfg.InsertDelay)
	require.NoError(t, cfg.Validate())
}

func TestStoreValidate(t *testing.T) {
	cfg := DefaultStoreConfig()
	cfg.MaxRetries = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultStoreConfig()
	cfg.Prefix = ""
	assert.Error(t, cfg.Validate())
}

func TestLoggingApplyDefaults(t *testing.T) {
	cfg := LoggingConfig{Level: "debug"}
	cfg.ApplyDefaults()
	assert.Equal(t, "debug", cfg.Console.Level)
	assert.Equal(t, "text", cfg.Console.Format)
	assert.True(t, cfg.Console.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoggingValidate(t *testing.T) {
	cfg := DefaultLoggingConfig()
	cfg.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = DefaultLoggingConfig()
	cfg.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestChannelEnvOverrides(t *testing.T) {
	t.Setenv("TELEDB_CHANNEL_PROVIDER", ProviderNATS)
	t.Setenv("TELEDB_NATS_URL", "nats://example:4222")

	cfg := DefaultChannelConfig()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, ProviderNATS, cfg.Provider)
	assert.Equal(t, "nats://example:4222", cfg.NATS.URL)
}
