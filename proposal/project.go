package proposal

import (
	"fmt"
	"time"
)

// ProjectStatus tracks the overall lifecycle of a proposal project.
type ProjectStatus string

const (
	ProjectStatusDraft     ProjectStatus = "draft"
	ProjectStatusGenerated ProjectStatus = "generated"
	ProjectStatusSubmitted ProjectStatus = "submitted"
)

// SectionContent holds the current text for one section of a project.
// Version increments on every successful overwrite (manual edit or
// regeneration) and never decrements. It gives callers conflict
// awareness, not locking: the last writer wins.
type SectionContent struct {
	Text         string    `json:"text"`
	AIGenerated  bool      `json:"ai_generated"`
	Version      int       `json:"version"`
	LastModified time.Time `json:"last_modified"`
}

// ProjectMetadata carries optional program-specific fields that are
// woven into generation prompts when present.
type ProjectMetadata struct {
	Budget         int      `json:"budget,omitempty"`
	DurationMonths int      `json:"duration_months,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
}

// Project is a proposal document being drafted against a template.
// Content maps section id to its current text.
type Project struct {
	ID          string                    `json:"id"`
	Title       string                    `json:"title"`
	Description string                    `json:"description"`
	TemplateID  string                    `json:"template_id"`
	Program     string                    `json:"program"`
	Content     map[string]SectionContent `json:"content,omitempty"`
	Status      ProjectStatus             `json:"status"`
	Metadata    ProjectMetadata           `json:"metadata,omitempty"`
	CreatedAt   time.Time                 `json:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
}

// Validate checks project invariants.
func (p *Project) Validate() error {
	if p.Title == "" {
		return fmt.Errorf("project title is required")
	}
	if p.Description == "" {
		return fmt.Errorf("project description is required")
	}
	if p.TemplateID == "" {
		return fmt.Errorf("project template_id is required")
	}
	return nil
}

// MergeContent applies new section texts onto existing content,
// bumping each overwritten section's version. Sections absent from
// updates are left untouched. Returns the merged map; neither input is
// modified.
func MergeContent(existing map[string]SectionContent, updates map[string]string, aiGenerated bool, now time.Time) map[string]SectionContent {
	merged := make(map[string]SectionContent, len(existing)+len(updates))
	for id, c := range existing {
		merged[id] = c
	}
	for id, text := range updates {
		prev := merged[id]
		merged[id] = SectionContent{
			Text:         text,
			AIGenerated:  aiGenerated,
			Version:      prev.Version + 1,
			LastModified: now,
		}
	}
	return merged
}
