// Package model manages model selection, endpoint configuration, and
// endpoint health for the LLM client. Capabilities describe what kind of
// work a request needs; the registry maps each capability to a preference
// chain of named endpoints.
package model

import "strings"

// Capability describes a category of model work.
type Capability string

const (
	// CapabilityDrafting is long-form content generation for proposal sections.
	CapabilityDrafting Capability = "drafting"

	// CapabilityValidating is rule compliance checking with structured output.
	CapabilityValidating Capability = "validating"

	// CapabilityAnalysis is document and template analysis.
	CapabilityAnalysis Capability = "analysis"

	// CapabilityFast is quick responses for simple tasks.
	CapabilityFast Capability = "fast"
)

// AllCapabilities returns every known capability.
func AllCapabilities() []Capability {
	return []Capability{
		CapabilityDrafting,
		CapabilityValidating,
		CapabilityAnalysis,
		CapabilityFast,
	}
}

// ParseCapability converts a string to a Capability.
// Returns "" for unknown values so callers can fall back to a default.
func ParseCapability(s string) Capability {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "drafting", "draft", "generation", "writing":
		return CapabilityDrafting
	case "validating", "validation", "checking":
		return CapabilityValidating
	case "analysis", "analyzing", "extraction":
		return CapabilityAnalysis
	case "fast", "quick":
		return CapabilityFast
	default:
		return ""
	}
}

// IsValid reports whether the capability is one of the known values.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityDrafting, CapabilityValidating, CapabilityAnalysis, CapabilityFast:
		return true
	}
	return false
}
