package proposal

import "time"

// Severity grades how badly a violation breaks a rule.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValid checks whether the severity is a known value.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ParseSeverity converts a string to a Severity, defaulting to medium
// for unknown values. Model responses are not trusted to stay on the
// enum.
func ParseSeverity(s string) Severity {
	sev := Severity(s)
	if !sev.IsValid() {
		return SeverityMedium
	}
	return sev
}

// RuleRef carries the matched rule's attributes on a violation, so the
// caller can rank findings without a second rule lookup.
type RuleRef struct {
	Category   string `json:"category,omitempty"`
	Priority   int    `json:"priority,omitempty"`
	IsRequired bool   `json:"is_required"`
}

// Violation is one reported failure of generated content to satisfy a
// rule.
type Violation struct {
	RuleID      string   `json:"rule_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Rule        *RuleRef `json:"rule,omitempty"`
}

// ValidationRecord is the immutable result of one validation request.
// Records form an append-only history; they are never edited after
// creation. Passed is true iff Violations is empty, and ViolationsCount
// always equals len(Violations).
type ValidationRecord struct {
	ID              string      `json:"id"`
	ProjectID       string      `json:"project_id"`
	TemplateID      string      `json:"template_id"`
	Passed          bool        `json:"passed"`
	Violations      []Violation `json:"violations"`
	RulesChecked    int         `json:"rules_checked"`
	ViolationsCount int         `json:"violations_count"`
	ValidatedAt     time.Time   `json:"validated_at"`
}
