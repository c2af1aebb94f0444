package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *Registry {
	return NewRegistry(
		map[Capability]*CapabilityConfig{
			CapabilityDrafting: {
				Preferred: []string{"primary"},
				Fallback:  []string{"secondary", "tertiary"},
			},
			CapabilityFast: {
				Preferred: []string{"secondary"},
			},
		},
		map[string]*EndpointConfig{
			"primary":   {Provider: "gemini", URL: "https://generativelanguage.googleapis.com", Model: "gemini-1.5-pro"},
			"secondary": {Provider: "ollama", URL: "http://localhost:11434/v1", Model: "qwen2.5:14b"},
			"tertiary":  {Provider: "anthropic", Model: "claude-sonnet-4-20250514"},
		},
	)
}

func TestResolve(t *testing.T) {
	r := testRegistry()

	assert.Equal(t, "primary", r.Resolve(CapabilityDrafting))
	assert.Equal(t, "secondary", r.Resolve(CapabilityFast))

	// Unknown capability falls back to the default.
	assert.Equal(t, "default", r.Resolve(CapabilityAnalysis))
}

func TestGetFallbackChain(t *testing.T) {
	r := testRegistry()

	chain := r.GetFallbackChain(CapabilityDrafting)
	assert.Equal(t, []string{"primary", "secondary", "tertiary"}, chain)

	chain = r.GetFallbackChain(CapabilityValidating)
	assert.Equal(t, []string{"default"}, chain)
}

func TestGetEndpoint(t *testing.T) {
	r := testRegistry()

	ep := r.GetEndpoint("primary")
	require.NotNil(t, ep)
	assert.Equal(t, "gemini", ep.Provider)
	assert.Equal(t, "gemini-1.5-pro", ep.Model)

	assert.Nil(t, r.GetEndpoint("missing"))
}

func TestSetters(t *testing.T) {
	r := testRegistry()

	r.SetEndpoint("extra", &EndpointConfig{Provider: "openai", Model: "gpt-4o-mini"})
	require.NotNil(t, r.GetEndpoint("extra"))

	r.SetCapability(CapabilityAnalysis, &CapabilityConfig{Preferred: []string{"extra"}})
	assert.Equal(t, "extra", r.Resolve(CapabilityAnalysis))

	r.SetDefault("extra")
	assert.Equal(t, "extra", r.Resolve(CapabilityValidating))
}

func TestNewDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()

	for _, cap := range AllCapabilities() {
		chain := r.GetFallbackChain(cap)
		require.NotEmpty(t, chain, "capability %s has no chain", cap)
		for _, name := range chain {
			assert.NotNil(t, r.GetEndpoint(name), "endpoint %s not configured", name)
		}
	}
}

func TestListEndpoints(t *testing.T) {
	r := testRegistry()

	names := r.ListEndpoints()
	assert.ElementsMatch(t, []string{"primary", "secondary", "tertiary"}, names)
}
