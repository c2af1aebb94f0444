package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registryJSON = `{
	"capabilities": {
		"drafting": {
			"description": "section generation",
			"preferred": ["gemini-pro"],
			"fallback": ["qwen"]
		},
		"validating": {
			"preferred": ["gemini-flash"]
		}
	},
	"endpoints": {
		"gemini-pro": {
			"provider": "gemini",
			"url": "https://generativelanguage.googleapis.com",
			"model": "gemini-1.5-pro"
		},
		"gemini-flash": {
			"provider": "gemini",
			"url": "https://generativelanguage.googleapis.com",
			"model": "gemini-1.5-flash"
		},
		"qwen": {
			"provider": "ollama",
			"url": "http://localhost:11434/v1",
			"model": "qwen2.5:14b",
			"max_tokens": 128000
		}
	},
	"defaults": {"model": "gemini-flash"}
}`

func TestLoadFromJSON(t *testing.T) {
	r, err := LoadFromJSON([]byte(registryJSON))
	require.NoError(t, err)

	assert.Equal(t, "gemini-pro", r.Resolve(CapabilityDrafting))
	assert.Equal(t, []string{"gemini-pro", "qwen"}, r.GetFallbackChain(CapabilityDrafting))

	ep := r.GetEndpoint("qwen")
	require.NotNil(t, ep)
	assert.Equal(t, 128000, ep.MaxTokens)

	// Unknown capability uses the configured default.
	assert.Equal(t, "gemini-flash", r.Resolve(CapabilityAnalysis))
}

func TestLoadFromJSONWrapped(t *testing.T) {
	wrapped := `{"model_registry": ` + registryJSON + `}`

	r, err := LoadFromJSON([]byte(wrapped))
	require.NoError(t, err)
	assert.Equal(t, "gemini-pro", r.Resolve(CapabilityDrafting))
}

func TestLoadFromJSONInvalid(t *testing.T) {
	_, err := LoadFromJSON([]byte("not json"))
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(registryJSON), 0o644))

	r, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-pro", r.Resolve(CapabilityDrafting))

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestMergeFromConfig(t *testing.T) {
	r, err := LoadFromJSON([]byte(registryJSON))
	require.NoError(t, err)

	r.MergeFromConfig(&RegistryConfig{
		Capabilities: map[string]*CapabilityConfig{
			"drafting": {Preferred: []string{"qwen"}},
		},
		Endpoints: map[string]*EndpointConfig{
			"extra": {Provider: "openai", Model: "gpt-4o-mini"},
		},
	})

	assert.Equal(t, "qwen", r.Resolve(CapabilityDrafting))
	assert.NotNil(t, r.GetEndpoint("extra"))
	// Entries absent from the merged config survive.
	assert.NotNil(t, r.GetEndpoint("gemini-pro"))
}

func TestRoundTripConfig(t *testing.T) {
	r, err := LoadFromJSON([]byte(registryJSON))
	require.NoError(t, err)

	cfg := r.ToConfig()
	assert.Contains(t, cfg.Capabilities, "drafting")
	assert.Contains(t, cfg.Endpoints, "qwen")
	assert.Equal(t, "gemini-flash", cfg.Defaults.Model)
}
