package proposal

import (
	"fmt"
	"sort"
	"time"
)

// RuleSourceType records where a compliance rule came from.
type RuleSourceType string

const (
	RuleSourceManual   RuleSourceType = "manual"
	RuleSourceDocument RuleSourceType = "document"
	RuleSourceWebsite  RuleSourceType = "website"
)

// IsValid checks whether the source type is a known value.
func (s RuleSourceType) IsValid() bool {
	switch s {
	case RuleSourceManual, RuleSourceDocument, RuleSourceWebsite:
		return true
	}
	return false
}

// Rule is a compliance statement checked against generated content.
// Rules are owned by a template and form an unordered set; consumers
// sort by (IsRequired desc, Priority desc) before use.
type Rule struct {
	ID          string         `json:"id"`
	TemplateID  string         `json:"template_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    string         `json:"category,omitempty"`
	Priority    int            `json:"priority,omitempty"` // 1..10, higher checked first
	IsRequired  bool           `json:"is_required"`
	SourceType  RuleSourceType `json:"source_type"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Validate checks rule invariants.
func (r *Rule) Validate() error {
	if r.Title == "" {
		return fmt.Errorf("rule title is required")
	}
	if r.Description == "" {
		return fmt.Errorf("rule description is required")
	}
	if r.Priority < 0 || r.Priority > 10 {
		// Zero means unset; extraction fills in a real priority.
		return fmt.Errorf("rule priority must be between 0 and 10")
	}
	if r.SourceType != "" && !r.SourceType.IsValid() {
		return fmt.Errorf("unknown rule source type %q", r.SourceType)
	}
	return nil
}

// SelectRules returns at most max rules, ordered required-first then by
// descending priority. The input slice is not modified. A max of zero or
// less selects nothing.
func SelectRules(rules []Rule, max int) []Rule {
	if max <= 0 || len(rules) == 0 {
		return nil
	}

	selected := make([]Rule, len(rules))
	copy(selected, rules)

	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].IsRequired != selected[j].IsRequired {
			return selected[i].IsRequired
		}
		return selected[i].Priority > selected[j].Priority
	})

	if len(selected) > max {
		selected = selected[:max]
	}
	return selected
}
