// Package validate checks a proposal's content against its template rules
// with a single LLM call and reconciles the answer into a structured
// violation list. The engine never fails hard: infrastructure problems
// degrade to a synthetic violation so the caller always gets a result.
package validate

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

// SyntheticRuleID marks the violation synthesized when the model call or
// response parsing fails.
const SyntheticRuleID = "ai-error"

// ResultStore persists validation records. A nil store disables persistence.
type ResultStore interface {
	SaveValidationResult(ctx context.Context, record *proposal.ValidationRecord) error
}

// Config tunes one engine.
type Config struct {
	// Temperature for the validation call.
	Temperature float64

	// MaxTokens for the validation response.
	MaxTokens int

	// Capability routed to the model registry.
	Capability string
}

// DefaultConfig returns the standard validation settings.
func DefaultConfig() Config {
	return Config{
		Temperature: 0.3,
		MaxTokens:   4000,
		Capability:  "validating",
	}
}

// Engine runs rule validation for a project.
type Engine struct {
	client   llm.CompletionClient
	composer *prompt.Composer
	store    ResultStore
	config   Config
	logger   *slog.Logger
}

// NewEngine creates an engine. store may be nil.
func NewEngine(client llm.CompletionClient, composer *prompt.Composer, store ResultStore, cfg Config, logger *slog.Logger) *Engine {
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultConfig().Temperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultConfig().MaxTokens
	}
	if cfg.Capability == "" {
		cfg.Capability = DefaultConfig().Capability
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		client:   client,
		composer: composer,
		store:    store,
		config:   cfg,
		logger:   logger,
	}
}

// modelVerdict is the JSON shape the model is asked to return.
type modelVerdict struct {
	Passed     *bool `json:"passed"`
	Violations []struct {
		RuleID      string `json:"ruleId"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Severity    string `json:"severity"`
	} `json:"violations"`
}

// Check validates the project's content against the template's rules and
// returns a complete record. It makes at most one LLM call, with no
// engine-side retry beyond the client's own fallback chain. Any model or
// parse failure yields a synthetic medium-severity violation instead of an
// error; Check itself only returns nil records on programmer error (nil
// project or template).
func (e *Engine) Check(ctx context.Context, project *proposal.Project, tmpl *proposal.Template, rules []proposal.Rule) (*proposal.ValidationRecord, error) {
	if project == nil || tmpl == nil {
		return nil, fmt.Errorf("project and template are required")
	}

	limits := e.composer.Limits()
	selected := proposal.SelectRules(rules, limits.MaxRules)

	// No rules means nothing to violate; skip the model entirely.
	if len(selected) == 0 {
		record := e.newRecord(project, tmpl, true, nil, 0)
		e.persist(ctx, record)
		return record, nil
	}

	promptText := e.composer.ValidationPrompt(prompt.ValidationPromptInput{
		ProjectTitle:       project.Title,
		ProjectDescription: project.Description,
		Program:            tmpl.Program,
		Sections:           tmpl.Sections,
		Content:            project.Content,
		Rules:              selected,
	})

	temp := e.config.Temperature
	resp, err := e.client.Complete(ctx, llm.Request{
		Capability:  e.config.Capability,
		Messages:    []llm.Message{{Role: "user", Content: promptText}},
		Temperature: &temp,
		MaxTokens:   e.config.MaxTokens,
	})
	if err != nil {
		e.logger.Warn("Validation call failed",
			slog.String("project_id", project.ID),
			slog.String("error", err.Error()))
		record := e.syntheticFailure(project, tmpl, len(rules),
			"The compliance check could not be completed because the AI service failed. Try again later.")
		e.persist(ctx, record)
		return record, nil
	}

	if strings.TrimSpace(resp.Content) == "" {
		e.logger.Warn("Validation call returned empty response",
			slog.String("project_id", project.ID))
		record := e.syntheticFailure(project, tmpl, len(rules),
			"The AI service returned an empty response. The content may be too long; try again later.")
		e.persist(ctx, record)
		return record, nil
	}

	var verdict modelVerdict
	if perr := llm.RepairInto(resp.Content, &verdict); perr != nil {
		e.logger.Warn("Validation response unparseable",
			slog.String("project_id", project.ID),
			slog.String("reason", perr.Reason))
		record := e.syntheticFailure(project, tmpl, len(rules),
			"The AI response could not be parsed as a validation result. Try again later.")
		e.persist(ctx, record)
		return record, nil
	}

	violations := e.reconcile(verdict, selected)
	passed := (verdict.Passed == nil || *verdict.Passed) && len(violations) == 0

	record := e.newRecord(project, tmpl, passed, violations, len(rules))
	e.persist(ctx, record)

	e.logger.Info("Validation finished",
		slog.String("project_id", project.ID),
		slog.Bool("passed", record.Passed),
		slog.Int("rules_checked", record.RulesChecked),
		slog.Int("violations", record.ViolationsCount))

	return record, nil
}

// reconcile matches reported violations against the known rule records, by
// id first and then by exact title, attaching the rule's category, priority,
// and required flag when found. Unmatched violations keep the model's own
// title.
func (e *Engine) reconcile(verdict modelVerdict, rules []proposal.Rule) []proposal.Violation {
	byID := make(map[string]*proposal.Rule, len(rules))
	byTitle := make(map[string]*proposal.Rule, len(rules))
	for i := range rules {
		byID[rules[i].ID] = &rules[i]
		byTitle[rules[i].Title] = &rules[i]
	}

	violations := make([]proposal.Violation, 0, len(verdict.Violations))
	for _, v := range verdict.Violations {
		violation := proposal.Violation{
			RuleID:      v.RuleID,
			Title:       v.Title,
			Description: v.Description,
			Severity:    proposal.ParseSeverity(v.Severity),
		}

		rule := byID[v.RuleID]
		if rule == nil {
			rule = byTitle[v.Title]
		}
		if rule != nil {
			violation.RuleID = rule.ID
			violation.Title = rule.Title
			violation.Rule = &proposal.RuleRef{
				Category:   rule.Category,
				Priority:   rule.Priority,
				IsRequired: rule.IsRequired,
			}
		}

		violations = append(violations, violation)
	}
	return violations
}

// syntheticFailure builds the single-violation record used when the model
// cannot deliver a usable verdict. rulesChecked reflects the full candidate
// rule count, not the capped prompt subset, matching what the caller sent.
func (e *Engine) syntheticFailure(project *proposal.Project, tmpl *proposal.Template, rulesChecked int, description string) *proposal.ValidationRecord {
	violations := []proposal.Violation{{
		RuleID:      SyntheticRuleID,
		Title:       "AI validation failed",
		Description: description,
		Severity:    proposal.SeverityMedium,
	}}
	return e.newRecord(project, tmpl, false, violations, rulesChecked)
}

func (e *Engine) newRecord(project *proposal.Project, tmpl *proposal.Template, passed bool, violations []proposal.Violation, rulesChecked int) *proposal.ValidationRecord {
	if violations == nil {
		violations = []proposal.Violation{}
	}
	return &proposal.ValidationRecord{
		ID:              uuid.NewString(),
		ProjectID:       project.ID,
		TemplateID:      tmpl.ID,
		Passed:          passed,
		Violations:      violations,
		RulesChecked:    rulesChecked,
		ViolationsCount: len(violations),
		ValidatedAt:     time.Now().UTC(),
	}
}

// persist writes the record best-effort. Validation history is useful but
// never worth failing the request over.
func (e *Engine) persist(ctx context.Context, record *proposal.ValidationRecord) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveValidationResult(ctx, record); err != nil {
		e.logger.Warn("Failed to persist validation record",
			slog.String("project_id", record.ProjectID),
			slog.String("error", err.Error()))
	}
}
