package analyze

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/draftforge/llm"
	"github.com/draftforge/draftforge/llm/testutil"
	"github.com/draftforge/draftforge/proposal"
)

const callText = "Proposals must contain an executive summary and a detailed budget. Evaluation weighs innovation at 40%."

func TestInferTemplate(t *testing.T) {
	client := &testutil.MockClient{
		Responses: []*llm.Response{{Content: "```json\n" + `{
			"name": "Horizon Standard",
			"description": "Standard call template",
			"sections": [
				{"title": "Executive Summary", "instructions": "Summarize", "required": true, "maxLength": 3000, "format": "text"},
				{"title": "Budget", "required": true, "format": "fancy-unknown"}
			],
			"criteria": [
				{"title": "Innovation", "description": "Novelty", "weight": 40}
			]
		}` + "\n```"}},
	}

	tmpl, err := NewAnalyzer(client, nil).InferTemplate(context.Background(), callText, "horizon-europe")
	require.NoError(t, err)

	assert.Equal(t, "Horizon Standard", tmpl.Name)
	assert.Equal(t, "horizon-europe", tmpl.Program)
	assert.True(t, tmpl.IsActive)
	assert.NotEmpty(t, tmpl.ID)

	require.Len(t, tmpl.Sections, 2)
	assert.Equal(t, "section-1", tmpl.Sections[0].ID)
	assert.Equal(t, "section-2", tmpl.Sections[1].ID)
	assert.Equal(t, proposal.FormatText, tmpl.Sections[1].Format, "unknown format falls back to text")
	assert.Equal(t, 3000, tmpl.Sections[0].MaxLength)

	require.Len(t, tmpl.Criteria, 1)
	assert.Equal(t, 40, tmpl.Criteria[0].Weight)

	req := client.LastRequest()
	assert.Equal(t, "analysis", req.Capability)
	assert.Contains(t, req.Messages[0].Content, callText)
}

func TestInferTemplateRejectsEmptyText(t *testing.T) {
	client := &testutil.MockClient{}
	_, err := NewAnalyzer(client, nil).InferTemplate(context.Background(), "   ", "horizon-europe")
	require.Error(t, err)
	assert.Equal(t, 0, client.CallCount())
}

func TestInferTemplateNoSections(t *testing.T) {
	client := &testutil.MockClient{
		Responses: []*llm.Response{{Content: `{"name": "Empty", "sections": [], "criteria": []}`}},
	}
	_, err := NewAnalyzer(client, nil).InferTemplate(context.Background(), callText, "horizon-europe")
	assert.ErrorContains(t, err, "no sections")
}

func TestInferTemplateUnparseable(t *testing.T) {
	client := &testutil.MockClient{
		Responses: []*llm.Response{{Content: "The document describes a grant program."}},
	}
	_, err := NewAnalyzer(client, nil).InferTemplate(context.Background(), callText, "horizon-europe")
	assert.ErrorContains(t, err, "parse inferred template")
}

func TestInferTemplateCallError(t *testing.T) {
	client := &testutil.MockClient{Err: errors.New("connection refused")}
	_, err := NewAnalyzer(client, nil).InferTemplate(context.Background(), callText, "horizon-europe")
	assert.ErrorContains(t, err, "analysis call")
}

func TestExtractRules(t *testing.T) {
	client := &testutil.MockClient{
		Responses: []*llm.Response{{Content: `{
			"rules": [
				{"title": "Page limit", "description": "Max 30 pages", "category": "format", "priority": 8, "isRequired": true},
				{"title": "Budget cap", "description": "Under 2M EUR", "category": "budget", "priority": 99},
				{"title": "  ", "description": "ignored"}
			]
		}`}},
	}

	rules, err := NewAnalyzer(client, nil).ExtractRules(context.Background(), callText, "tmpl-1")
	require.NoError(t, err)
	require.Len(t, rules, 2, "blank titles are dropped")

	assert.Equal(t, "Page limit", rules[0].Title)
	assert.Equal(t, "tmpl-1", rules[0].TemplateID)
	assert.True(t, rules[0].IsRequired)
	assert.Equal(t, proposal.RuleSourceDocument, rules[0].SourceType)
	assert.NotEmpty(t, rules[0].ID)

	assert.Equal(t, 10, rules[1].Priority, "priority clamped to 1..10")
}

func TestExtractRulesEmptyResponse(t *testing.T) {
	client := &testutil.MockClient{
		Responses: []*llm.Response{{Content: ""}},
	}
	_, err := NewAnalyzer(client, nil).ExtractRules(context.Background(), callText, "tmpl-1")
	assert.ErrorContains(t, err, "empty response")
}
