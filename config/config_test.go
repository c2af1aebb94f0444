package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.True(t, cfg.NATS.Embedded)
	assert.Equal(t, 0.7, cfg.Generation.DraftTemperature)
	assert.Equal(t, 0.3, cfg.Generation.ValidateTemperature)
	assert.Equal(t, 4000, cfg.Generation.MaxOutputTokens)
	assert.Equal(t, 15, cfg.Generation.MaxRules)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing addr",
			mutate:  func(c *Config) { c.Server.Addr = "" },
			wantErr: "server.addr",
		},
		{
			name:    "bad draft temperature",
			mutate:  func(c *Config) { c.Generation.DraftTemperature = 1.5 },
			wantErr: "draft_temperature",
		},
		{
			name:    "bad validate temperature",
			mutate:  func(c *Config) { c.Generation.ValidateTemperature = -0.1 },
			wantErr: "validate_temperature",
		},
		{
			name:    "zero max tokens",
			mutate:  func(c *Config) { c.Generation.MaxOutputTokens = 0 },
			wantErr: "max_output_tokens",
		},
		{
			name: "external nats without url",
			mutate: func(c *Config) {
				c.NATS.Embedded = false
				c.NATS.URL = ""
			},
			wantErr: "nats.url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
server:
  addr: ":9090"
nats:
  url: "nats://localhost:4222"
generation:
  max_rules: 10
log:
  level: debug
`
	path := filepath.Join(t.TempDir(), "draftforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, 10, cfg.Generation.MaxRules)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Unset values keep defaults.
	assert.Equal(t, 0.7, cfg.Generation.DraftTemperature)
	assert.Equal(t, 30000, cfg.Generation.ValidationCharBudget)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Merge(&Config{
		Server:     ServerConfig{Addr: ":7070", ShutdownTimeout: 30 * time.Second},
		NATS:       NATSConfig{URL: "nats://remote:4222"},
		Generation: GenerationConfig{DraftTemperature: 0.5},
		Log:        LogConfig{Format: "json"},
	})

	assert.Equal(t, ":7070", base.Server.Addr)
	assert.Equal(t, 30*time.Second, base.Server.ShutdownTimeout)
	assert.Equal(t, "nats://remote:4222", base.NATS.URL)
	assert.False(t, base.NATS.Embedded, "explicit URL disables embedded server")
	assert.Equal(t, 0.5, base.Generation.DraftTemperature)
	assert.Equal(t, "json", base.Log.Format)

	// Untouched fields survive the merge.
	assert.Equal(t, 4000, base.Generation.MaxOutputTokens)
	assert.Equal(t, "info", base.Log.Level)

	base.Merge(nil)
	assert.Equal(t, ":7070", base.Server.Addr)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.Addr = ":6060"
	require.NoError(t, cfg.SaveToFile(path))

	reloaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ":6060", reloaded.Server.Addr)
}
