// Package proposal defines the domain model for grant proposal drafting:
// templates with ordered sections, compliance rules, projects with
// per-section content, and validation records.
package proposal

import (
	"fmt"
	"time"
)

// SectionFormat describes how a section's content is structured.
type SectionFormat string

const (
	FormatText     SectionFormat = "text"
	FormatRichText SectionFormat = "rich-text"
	FormatTable    SectionFormat = "table"
	FormatBudget   SectionFormat = "budget"
)

// IsValid checks whether the format is one of the known values.
func (f SectionFormat) IsValid() bool {
	switch f {
	case FormatText, FormatRichText, FormatTable, FormatBudget:
		return true
	}
	return false
}

// ParseSectionFormat converts a string to a SectionFormat,
// defaulting to FormatText for unknown values.
func ParseSectionFormat(s string) SectionFormat {
	f := SectionFormat(s)
	if !f.IsValid() {
		return FormatText
	}
	return f
}

// Section is one named, ordered unit of the output document.
// Order within a template is semantically significant: it defines the
// narrative sequence and drives generation order.
type Section struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Instructions string        `json:"instructions,omitempty"`
	Required     bool          `json:"required"`
	MaxLength    int           `json:"max_length,omitempty"`
	Format       SectionFormat `json:"format"`
}

// Criterion is an evaluation criterion attached to a template.
// Criteria are surfaced in generation prompts so content addresses
// what reviewers will score.
type Criterion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Weight      int    `json:"weight,omitempty"`
}

// Template is the ordered set of sections plus evaluation criteria used
// to draft and judge a proposal document.
type Template struct {
	ID          string      `json:"id"`
	Program     string      `json:"program"` // funding program this template targets
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Sections    []Section   `json:"sections"`
	Criteria    []Criterion `json:"criteria,omitempty"`
	IsActive    bool        `json:"is_active"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Validate checks structural invariants: at least one section, unique
// non-empty section IDs, and known formats.
func (t *Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("template name is required")
	}
	if len(t.Sections) == 0 {
		return fmt.Errorf("template must have at least one section")
	}

	seen := make(map[string]bool, len(t.Sections))
	for i, s := range t.Sections {
		if s.ID == "" {
			return fmt.Errorf("section %d: id is required", i)
		}
		if s.Title == "" {
			return fmt.Errorf("section %q: title is required", s.ID)
		}
		if seen[s.ID] {
			return fmt.Errorf("section %q: duplicate id", s.ID)
		}
		seen[s.ID] = true
		if s.Format != "" && !s.Format.IsValid() {
			return fmt.Errorf("section %q: unknown format %q", s.ID, s.Format)
		}
		if s.MaxLength < 0 {
			return fmt.Errorf("section %q: max_length must not be negative", s.ID)
		}
	}
	return nil
}

// SectionByID returns the section with the given id, or nil.
func (t *Template) SectionByID(id string) *Section {
	for i := range t.Sections {
		if t.Sections[i].ID == id {
			return &t.Sections[i]
		}
	}
	return nil
}
