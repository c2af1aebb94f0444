package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureHandler records log output so tests can assert on levels.
type captureHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) warnings() []slog.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []slog.Record
	for _, r := range h.records {
		if r.Level >= slog.LevelWarn {
			out = append(out, r)
		}
	}
	return out
}

func TestLoadWithoutUserConfigDoesNotWarn(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	handler := &captureHandler{}
	loader := NewLoader(slog.New(handler))

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)

	assert.Empty(t, handler.warnings(), "missing user config must not warn")
}

func TestLoadWarnsOnBrokenUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	configDir := filepath.Join(home, UserConfigDir)
	require.NoError(t, os.MkdirAll(configDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, UserConfigFile), []byte("server: [broken"), 0644))

	handler := &captureHandler{}
	loader := NewLoader(slog.New(handler))

	_, err := loader.Load()
	require.NoError(t, err)

	assert.NotEmpty(t, handler.warnings(), "unparseable user config should warn")
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvAddr, ":9999")
	t.Setenv(EnvNATSURL, "nats://example:4222")

	loader := NewLoader(slog.New(&captureHandler{}))

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "nats://example:4222", cfg.NATS.URL)
	assert.False(t, cfg.NATS.Embedded)
}
