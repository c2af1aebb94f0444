// Package analyze infers template structure and compliance rules from raw
// call-for-proposals text. Text extraction from PDFs or websites happens
// upstream; this package only turns already-extracted text into structured
// records via the LLM.
package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/draftforge/draftforge/llm"
	"github.com/draftforge/draftforge/prompt"
	"github.com/draftforge/draftforge/proposal"
)

// maxDocumentChars caps how much document text goes into one analysis
// prompt.
const maxDocumentChars = 30000

// Analyzer asks the LLM to extract structure from documents.
type Analyzer struct {
	client llm.CompletionClient
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(client llm.CompletionClient, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{client: client, logger: logger}
}

// inferredTemplate is the JSON shape requested for template inference.
type inferredTemplate struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Sections    []struct {
		Title        string `json:"title"`
		Instructions string `json:"instructions"`
		Required     bool   `json:"required"`
		MaxLength    int    `json:"maxLength"`
		Format       string `json:"format"`
	} `json:"sections"`
	Criteria []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Weight      int    `json:"weight"`
	} `json:"criteria"`
}

// InferTemplate asks the LLM to derive a proposal template from document
// text. Section ids are normalized to section-1..section-N and unknown
// formats fall back to text.
func (a *Analyzer) InferTemplate(ctx context.Context, text, programName string) (*proposal.Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("document text is empty")
	}

	promptText := fmt.Sprintf(`You are an expert on R&D grant programs. Derive a proposal template from the call document below.

DOCUMENT:
%s

Return ONLY a valid JSON object, no explanations, no markdown:

{
  "name": "template name",
  "description": "one sentence on what this template is for",
  "sections": [
    {"title": "...", "instructions": "...", "required": true, "maxLength": 5000, "format": "text"}
  ],
  "criteria": [
    {"title": "...", "description": "...", "weight": 30}
  ]
}

- format must be one of "text", "rich-text", "table", "budget"
- list sections in the order the call expects them
- omit maxLength (use 0) when the call does not state one

Now return the template as JSON:`, prompt.Truncate(text, maxDocumentChars))

	resp, err := a.complete(ctx, promptText)
	if err != nil {
		return nil, err
	}

	var inferred inferredTemplate
	if perr := llm.RepairInto(resp, &inferred); perr != nil {
		return nil, fmt.Errorf("parse inferred template: %w", perr)
	}
	if len(inferred.Sections) == 0 {
		return nil, fmt.Errorf("inferred template has no sections")
	}

	now := time.Now().UTC()
	tmpl := &proposal.Template{
		ID:          uuid.NewString(),
		Program:     programName,
		Name:        inferred.Name,
		Description: inferred.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, s := range inferred.Sections {
		tmpl.Sections = append(tmpl.Sections, proposal.Section{
			ID:           fmt.Sprintf("section-%d", i+1),
			Title:        s.Title,
			Instructions: s.Instructions,
			Required:     s.Required,
			MaxLength:    s.MaxLength,
			Format:       proposal.ParseSectionFormat(s.Format),
		})
	}
	for _, c := range inferred.Criteria {
		tmpl.Criteria = append(tmpl.Criteria, proposal.Criterion{
			Title:       c.Title,
			Description: c.Description,
			Weight:      c.Weight,
		})
	}

	if err := tmpl.Validate(); err != nil {
		return nil, fmt.Errorf("inferred template invalid: %w", err)
	}

	a.logger.Info("Template inferred from document",
		slog.String("template_id", tmpl.ID),
		slog.Int("sections", len(tmpl.Sections)),
		slog.Int("criteria", len(tmpl.Criteria)))

	return tmpl, nil
}

// extractedRules is the JSON shape requested for rule extraction.
type extractedRules struct {
	Rules []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Priority    int    `json:"priority"`
		IsRequired  bool   `json:"isRequired"`
	} `json:"rules"`
}

// ExtractRules asks the LLM to pull compliance rules out of document text.
// The returned rules carry the given template id and document source type.
func (a *Analyzer) ExtractRules(ctx context.Context, text, templateID string) ([]proposal.Rule, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("document text is empty")
	}

	promptText := fmt.Sprintf(`You are an expert on R&D grant programs. Extract every compliance rule a proposal must satisfy from the call document below.

DOCUMENT:
%s

Return ONLY a valid JSON object, no explanations, no markdown:

{
  "rules": [
    {
      "title": "short rule name",
      "description": "what the proposal must do to comply",
      "category": "format|content|budget|eligibility|general",
      "priority": 7,
      "isRequired": true
    }
  ]
}

- priority is 1..10, higher means checked first
- isRequired is true only for hard requirements whose violation disqualifies

Now return the rules as JSON:`, prompt.Truncate(text, maxDocumentChars))

	resp, err := a.complete(ctx, promptText)
	if err != nil {
		return nil, err
	}

	var extracted extractedRules
	if perr := llm.RepairInto(resp, &extracted); perr != nil {
		return nil, fmt.Errorf("parse extracted rules: %w", perr)
	}

	now := time.Now().UTC()
	rules := make([]proposal.Rule, 0, len(extracted.Rules))
	for _, r := range extracted.Rules {
		if strings.TrimSpace(r.Title) == "" {
			continue
		}
		priority := r.Priority
		if priority < 1 {
			priority = 1
		}
		if priority > 10 {
			priority = 10
		}
		rules = append(rules, proposal.Rule{
			ID:          uuid.NewString(),
			TemplateID:  templateID,
			Title:       r.Title,
			Description: r.Description,
			Category:    r.Category,
			Priority:    priority,
			IsRequired:  r.IsRequired,
			SourceType:  proposal.RuleSourceDocument,
			CreatedAt:   now,
		})
	}

	a.logger.Info("Rules extracted from document",
		slog.String("template_id", templateID),
		slog.Int("rules", len(rules)))

	return rules, nil
}

func (a *Analyzer) complete(ctx context.Context, promptText string) (string, error) {
	temp := 0.3
	resp, err := a.client.Complete(ctx, llm.Request{
		Capability:  "analysis",
		Messages:    []llm.Message{{Role: "user", Content: promptText}},
		Temperature: &temp,
		MaxTokens:   4000,
	})
	if err != nil {
		return "", fmt.Errorf("analysis call: %w", err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("analysis call returned empty response")
	}
	return resp.Content, nil
}
