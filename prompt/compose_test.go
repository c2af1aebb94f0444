package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/draftforge/proposal"
)

func threeSections() []proposal.Section {
	return []proposal.Section{
		{ID: "summary", Title: "Executive Summary", Instructions: "Summarize the project", Required: true, MaxLength: 3000, Format: proposal.FormatText},
		{ID: "method", Title: "Methodology", Instructions: "Describe the approach", Required: true, Format: proposal.FormatRichText},
		{ID: "budget", Title: "Budget Plan", Required: false, Format: proposal.FormatBudget},
	}
}

func TestSectionPromptContainsVerbatimFields(t *testing.T) {
	c := NewComposer(Limits{})
	out := c.SectionPrompt(SectionPromptInput{
		ProjectTitle:       "Solar Microgrid",
		ProjectDescription: "Village-scale storage",
		Program:            "horizon-europe",
		Sections:           threeSections(),
		CurrentIndex:       0,
		Criteria: []proposal.Criterion{
			{Title: "Innovation", Description: "Novelty of the approach", Weight: 40},
		},
	})

	assert.Contains(t, out, `"Executive Summary"`)
	assert.Contains(t, out, "Summarize the project")
	assert.Contains(t, out, `"Solar Microgrid"`)
	assert.Contains(t, out, "Maximum length: 3000 characters")
	assert.Contains(t, out, "Format: text")
	assert.Contains(t, out, "Innovation")
	assert.Contains(t, out, "weight: 40")
}

func TestSectionPromptOmitsAbsentOptionalFields(t *testing.T) {
	c := NewComposer(Limits{})
	out := c.SectionPrompt(SectionPromptInput{
		ProjectTitle: "Solar Microgrid",
		Sections:     threeSections(),
		CurrentIndex: 2, // budget section, no instructions, no maxLength
	})

	assert.NotContains(t, out, "Maximum length")
	assert.NotContains(t, out, "- Instructions:")
	assert.NotContains(t, out, "Budget: 0")
	assert.NotContains(t, out, "Keywords:")
}

func TestSectionPromptStatuses(t *testing.T) {
	c := NewComposer(Limits{})
	out := c.SectionPrompt(SectionPromptInput{
		ProjectTitle: "Solar Microgrid",
		Sections:     threeSections(),
		CurrentIndex: 1,
		Prior: []Entry{
			{SectionID: "summary", Title: "Executive Summary", Content: "We will build a microgrid."},
		},
	})

	assert.Contains(t, out, `1. "Executive Summary" (completed)`)
	assert.Contains(t, out, `2. "Methodology" (WRITING NOW)`)
	assert.Contains(t, out, `3. "Budget Plan" (not yet written)`)
	assert.Contains(t, out, "We will build a microgrid.")
	assert.Contains(t, out, "UPCOMING SECTIONS")
	assert.Contains(t, out, `"Budget Plan"`)
}

func TestSectionPromptFirstSectionHasNoPriorBlock(t *testing.T) {
	c := NewComposer(Limits{})
	out := c.SectionPrompt(SectionPromptInput{
		ProjectTitle: "Solar Microgrid",
		Sections:     threeSections(),
		CurrentIndex: 0,
	})

	assert.NotContains(t, out, "PREVIOUS SECTIONS")
	assert.Contains(t, out, "first section")
}

func TestSectionPromptTruncatesPriorEntries(t *testing.T) {
	c := NewComposer(Limits{ContextCharLimit: 20})
	out := c.SectionPrompt(SectionPromptInput{
		ProjectTitle: "Solar Microgrid",
		Sections:     threeSections(),
		CurrentIndex: 1,
		Prior: []Entry{
			{SectionID: "summary", Title: "Executive Summary", Content: strings.Repeat("x", 100)},
		},
	})

	assert.Contains(t, out, strings.Repeat("x", 20)+TruncationMarker)
	assert.NotContains(t, out, strings.Repeat("x", 21))
}

func TestRegeneratePromptContainsVerbatimFields(t *testing.T) {
	c := NewComposer(Limits{})
	out := c.RegeneratePrompt(RegeneratePromptInput{
		ProjectTitle:       "Solar Microgrid",
		ProjectDescription: "Village-scale storage",
		Program:            "horizon-europe",
		Section:            threeSections()[0],
		Guidance:           "emphasize community impact",
		Prior: []Entry{
			{SectionID: "method", Title: "Methodology", Content: "Iterative pilots."},
		},
	})

	assert.Contains(t, out, `Rewrite the "Executive Summary" section`)
	assert.Contains(t, out, `"Solar Microgrid"`)
	assert.Contains(t, out, "Summarize the project")
	assert.Contains(t, out, "Maximum length: 3000 characters")
	assert.Contains(t, out, "GUIDANCE FROM THE AUTHOR:\nemphasize community impact")
	assert.Contains(t, out, "OTHER SECTIONS")
	assert.Contains(t, out, "Iterative pilots.")
}

func TestRegeneratePromptOmitsAbsentBlocks(t *testing.T) {
	c := NewComposer(Limits{})
	out := c.RegeneratePrompt(RegeneratePromptInput{
		ProjectTitle: "Solar Microgrid",
		Section:      threeSections()[2], // no instructions, no maxLength
	})

	assert.NotContains(t, out, "GUIDANCE")
	assert.NotContains(t, out, "OTHER SECTIONS")
	assert.NotContains(t, out, "Maximum length")
	assert.NotContains(t, out, "- Instructions:")
}

func TestRegeneratePromptTruncatesPriorEntries(t *testing.T) {
	c := NewComposer(Limits{ContextCharLimit: 20})
	out := c.RegeneratePrompt(RegeneratePromptInput{
		ProjectTitle: "Solar Microgrid",
		Section:      threeSections()[0],
		Prior: []Entry{
			{SectionID: "method", Title: "Methodology", Content: strings.Repeat("y", 100)},
		},
	})

	assert.Contains(t, out, strings.Repeat("y", 20)+TruncationMarker)
	assert.NotContains(t, out, strings.Repeat("y", 21))
}

func TestValidationPromptRuleBudgets(t *testing.T) {
	c := NewComposer(Limits{MaxRules: 2, RuleDescriptionLimit: 10})

	rules := []proposal.Rule{
		{ID: "r1", Title: "Page limit", Description: strings.Repeat("d", 50), IsRequired: true, Priority: 9},
		{ID: "r2", Title: "Budget cap", Description: "short", Priority: 5},
		{ID: "r3", Title: "Never shown", Description: "excluded", Priority: 1},
	}

	out := c.ValidationPrompt(ValidationPromptInput{
		ProjectTitle: "Solar Microgrid",
		Sections:     threeSections(),
		Content: map[string]proposal.SectionContent{
			"summary": {Text: "Summary text"},
		},
		Rules: rules,
	})

	assert.Contains(t, out, "[REQUIRED] Page limit")
	assert.Contains(t, out, "[OPTIONAL] Budget cap")
	assert.NotContains(t, out, "Never shown")
	assert.Contains(t, out, strings.Repeat("d", 10)+"...")
	assert.NotContains(t, out, strings.Repeat("d", 11))
	assert.Contains(t, out, `"passed": false`)
	assert.Contains(t, out, "Return ONLY a valid JSON object")
}

func TestValidationPromptEmptyContent(t *testing.T) {
	c := NewComposer(Limits{})
	out := c.ValidationPrompt(ValidationPromptInput{
		ProjectTitle: "Solar Microgrid",
		Sections:     threeSections(),
		Content:      map[string]proposal.SectionContent{},
		Rules:        []proposal.Rule{{ID: "r1", Title: "Page limit", Description: "d"}},
	})

	assert.Contains(t, out, "No content has been written yet.")
}

func TestAssembleContentFollowsTemplateOrder(t *testing.T) {
	c := NewComposer(Limits{})
	out := c.AssembleContent(threeSections(), map[string]proposal.SectionContent{
		"budget":  {Text: "Budget body"},
		"summary": {Text: "Summary body"},
	})

	sumIdx := strings.Index(out, "Summary body")
	budIdx := strings.Index(out, "Budget body")
	require.GreaterOrEqual(t, sumIdx, 0)
	require.GreaterOrEqual(t, budIdx, 0)
	assert.Less(t, sumIdx, budIdx)
	assert.Contains(t, out, "## Executive Summary")
	assert.NotContains(t, out, "## Methodology")
}

func TestAssembleContentTotalBudget(t *testing.T) {
	c := NewComposer(Limits{ValidationCharBudget: 30})
	out := c.AssembleContent(threeSections(), map[string]proposal.SectionContent{
		"summary": {Text: strings.Repeat("a", 100)},
	})

	assert.True(t, strings.HasSuffix(out, TruncationMarker))
	assert.LessOrEqual(t, len(out), 30+len(TruncationMarker))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "ab"+TruncationMarker, Truncate("abcd", 2))
	assert.Equal(t, "abcd", Truncate("abcd", 0), "zero disables the cap")

	// Rune-safe: never cuts a multibyte character in half.
	out := Truncate("ééééé", 3)
	assert.Equal(t, "ééé"+TruncationMarker, out)
}

func TestDefaultLimits(t *testing.T) {
	l := DefaultLimits()
	assert.Equal(t, 2000, l.ContextCharLimit)
	assert.Equal(t, 30000, l.ValidationCharBudget)
	assert.Equal(t, 15, l.MaxRules)
	assert.Equal(t, 200, l.RuleDescriptionLimit)

	// Zero-value fields fall back to defaults.
	c := NewComposer(Limits{MaxRules: 5})
	assert.Equal(t, 5, c.Limits().MaxRules)
	assert.Equal(t, 2000, c.Limits().ContextCharLimit)
}
