package prompt

import (
	"fmt"
	"strings"

	"github.com/draftforge/draftforge/proposal"
)

// Limits holds the character and count budgets applied during prompt
// composition. Budgets are explicit so they can be tested independently of
// the orchestration loop.
type Limits struct {
	// ContextCharLimit caps each prior-section digest entry.
	ContextCharLimit int

	// ValidationCharBudget caps the assembled project content sent for
	// validation.
	ValidationCharBudget int

	// MaxRules caps how many rules are included per validation prompt.
	MaxRules int

	// RuleDescriptionLimit caps each rule description.
	RuleDescriptionLimit int
}

// DefaultLimits returns the standard prompt budgets.
func DefaultLimits() Limits {
	return Limits{
		ContextCharLimit:     2000,
		ValidationCharBudget: 30000,
		MaxRules:             15,
		RuleDescriptionLimit: 200,
	}
}

// Composer builds generation and validation prompts. It is pure and never
// touches the network or storage.
type Composer struct {
	limits Limits
}

// NewComposer creates a composer with the given limits. Zero-value limit
// fields fall back to the defaults.
func NewComposer(limits Limits) *Composer {
	def := DefaultLimits()
	if limits.ContextCharLimit == 0 {
		limits.ContextCharLimit = def.ContextCharLimit
	}
	if limits.ValidationCharBudget == 0 {
		limits.ValidationCharBudget = def.ValidationCharBudget
	}
	if limits.MaxRules == 0 {
		limits.MaxRules = def.MaxRules
	}
	if limits.RuleDescriptionLimit == 0 {
		limits.RuleDescriptionLimit = def.RuleDescriptionLimit
	}
	return &Composer{limits: limits}
}

// Limits returns the composer's effective budgets.
func (c *Composer) Limits() Limits {
	return c.limits
}

// SectionPromptInput carries everything needed to compose one section's
// generation prompt.
type SectionPromptInput struct {
	ProjectTitle       string
	ProjectDescription string
	Program            string
	Metadata           proposal.ProjectMetadata

	// Sections is the full ordered section list from the template.
	Sections []proposal.Section

	// CurrentIndex is the position of the section being written.
	CurrentIndex int

	// Prior holds the digests of previously completed sections, in
	// generation order. Failed sections must not appear here.
	Prior []Entry

	Criteria []proposal.Criterion
}

// SectionPrompt builds the prompt for one section. The section's title and
// instructions appear verbatim; optional fields (maxLength, instructions)
// are omitted entirely when absent.
func (c *Composer) SectionPrompt(in SectionPromptInput) string {
	current := in.Sections[in.CurrentIndex]

	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert R&D grant proposal writer. Write the %q section of the proposal %q", current.Title, in.ProjectTitle)
	if in.Program != "" {
		fmt.Fprintf(&b, " for the %s program", in.Program)
	}
	b.WriteString(".\n\n")

	b.WriteString("CONSISTENCY RULES:\n")
	b.WriteString("1. The content must be specific to this proposal, never generic.\n")
	if len(in.Prior) > 0 {
		b.WriteString("2. Stay fully consistent with the previous sections: reuse the same technical details, figures, and names.\n")
	} else {
		b.WriteString("2. This is the first section; state the project details clearly so later sections can build on them.\n")
	}
	b.WriteString("3. The section must fit coherently with the sections that follow.\n\n")

	b.WriteString("PROJECT:\n")
	fmt.Fprintf(&b, "- Title: %q\n", in.ProjectTitle)
	if in.ProjectDescription != "" {
		fmt.Fprintf(&b, "- Description: %q\n", in.ProjectDescription)
	}
	if in.Program != "" {
		fmt.Fprintf(&b, "- Program: %s\n", in.Program)
	}
	if in.Metadata.Budget > 0 {
		fmt.Fprintf(&b, "- Budget: %d\n", in.Metadata.Budget)
	}
	if in.Metadata.DurationMonths > 0 {
		fmt.Fprintf(&b, "- Duration: %d months\n", in.Metadata.DurationMonths)
	}
	if len(in.Metadata.Keywords) > 0 {
		fmt.Fprintf(&b, "- Keywords: %s\n", strings.Join(in.Metadata.Keywords, ", "))
	}
	b.WriteString("\n")

	b.WriteString("DOCUMENT STRUCTURE:\n")
	for i, s := range in.Sections {
		status := "not yet written"
		if i == in.CurrentIndex {
			status = "WRITING NOW"
		} else if hasEntry(in.Prior, s.ID) {
			status = "completed"
		}
		fmt.Fprintf(&b, "%d. %q (%s)", i+1, s.Title, status)
		if s.Instructions != "" {
			fmt.Fprintf(&b, " - %s", s.Instructions)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(in.Prior) > 0 {
		b.WriteString("PREVIOUS SECTIONS (stay fully consistent with these):\n")
		b.WriteString(renderEntries(in.Prior, c.limits.ContextCharLimit))
		b.WriteString("\n")
	}

	if upcoming := in.Sections[in.CurrentIndex+1:]; len(upcoming) > 0 {
		b.WriteString("UPCOMING SECTIONS (write so they can build on this one):\n")
		for i, s := range upcoming {
			fmt.Fprintf(&b, "%d. %q", i+1, s.Title)
			if s.Instructions != "" {
				fmt.Fprintf(&b, " - %s", s.Instructions)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("SECTION TO WRITE:\n")
	fmt.Fprintf(&b, "- Title: %q\n", current.Title)
	if current.Instructions != "" {
		fmt.Fprintf(&b, "- Instructions: %s\n", current.Instructions)
	}
	if current.MaxLength > 0 {
		fmt.Fprintf(&b, "- Maximum length: %d characters\n", current.MaxLength)
	}
	if current.Format != "" {
		fmt.Fprintf(&b, "- Format: %s\n", current.Format)
	}
	b.WriteString("\n")

	if len(in.Criteria) > 0 {
		b.WriteString("EVALUATION CRITERIA (address these in the content):\n")
		for i, cr := range in.Criteria {
			fmt.Fprintf(&b, "%d. %q", i+1, cr.Title)
			if cr.Description != "" {
				fmt.Fprintf(&b, " - %s", cr.Description)
			}
			if cr.Weight > 0 {
				fmt.Fprintf(&b, " (weight: %d)", cr.Weight)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Now write the %q section of %q:", current.Title, in.ProjectTitle)
	return b.String()
}

// RegeneratePromptInput carries everything needed to compose a standalone
// prompt for rewriting one section of an existing proposal.
type RegeneratePromptInput struct {
	ProjectTitle       string
	ProjectDescription string
	Program            string
	Metadata           proposal.ProjectMetadata

	// Section is the section being rewritten.
	Section proposal.Section

	// Guidance is the caller's free-form instruction for this rewrite.
	// Empty means rewrite from the project details alone.
	Guidance string

	// Prior holds the other sections' current content, in template order,
	// so the rewrite stays consistent with the rest of the document.
	Prior []Entry
}

// RegeneratePrompt builds the prompt for rewriting a single section outside
// a full generation run. The section's title and instructions appear
// verbatim; optional fields are omitted entirely when absent.
func (c *Composer) RegeneratePrompt(in RegeneratePromptInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert R&D grant proposal writer. Rewrite the %q section of the proposal %q", in.Section.Title, in.ProjectTitle)
	if in.Program != "" {
		fmt.Fprintf(&b, " for the %s program", in.Program)
	}
	b.WriteString(".\n\n")

	b.WriteString("IMPORTANT: The content must be specific to this proposal, never generic. Use the project title and description to write detailed, in-depth content for this project.\n\n")

	b.WriteString("PROJECT:\n")
	fmt.Fprintf(&b, "- Title: %q\n", in.ProjectTitle)
	if in.ProjectDescription != "" {
		fmt.Fprintf(&b, "- Description: %q\n", in.ProjectDescription)
	}
	if in.Program != "" {
		fmt.Fprintf(&b, "- Program: %s\n", in.Program)
	}
	if in.Metadata.Budget > 0 {
		fmt.Fprintf(&b, "- Budget: %d\n", in.Metadata.Budget)
	}
	if in.Metadata.DurationMonths > 0 {
		fmt.Fprintf(&b, "- Duration: %d months\n", in.Metadata.DurationMonths)
	}
	if len(in.Metadata.Keywords) > 0 {
		fmt.Fprintf(&b, "- Keywords: %s\n", strings.Join(in.Metadata.Keywords, ", "))
	}
	b.WriteString("\n")

	if len(in.Prior) > 0 {
		b.WriteString("OTHER SECTIONS (stay fully consistent with these):\n")
		b.WriteString(renderEntries(in.Prior, c.limits.ContextCharLimit))
		b.WriteString("\n")
	}

	b.WriteString("SECTION TO WRITE:\n")
	fmt.Fprintf(&b, "- Title: %q\n", in.Section.Title)
	if in.Section.Instructions != "" {
		fmt.Fprintf(&b, "- Instructions: %s\n", in.Section.Instructions)
	}
	if in.Section.MaxLength > 0 {
		fmt.Fprintf(&b, "- Maximum length: %d characters\n", in.Section.MaxLength)
	}
	if in.Section.Format != "" {
		fmt.Fprintf(&b, "- Format: %s\n", in.Section.Format)
	}
	b.WriteString("\n")

	if in.Guidance != "" {
		b.WriteString("GUIDANCE FROM THE AUTHOR:\n")
		b.WriteString(in.Guidance)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "Now write the %q section of %q:", in.Section.Title, in.ProjectTitle)
	return b.String()
}

// ValidationPromptInput carries everything needed to compose the rule
// validation prompt.
type ValidationPromptInput struct {
	ProjectTitle       string
	ProjectDescription string
	Program            string

	// Sections is the template's ordered section list; content is looked up
	// per section id so the assembled text follows narrative order.
	Sections []proposal.Section
	Content  map[string]proposal.SectionContent

	// Rules must already be selected and ordered (required first, then
	// priority descending) by the caller.
	Rules []proposal.Rule
}

// ValidationPrompt builds the single compliance-check prompt. The assembled
// content is capped at the total budget and each rule description at its own
// cap; the model is instructed to return only a JSON object of shape
// {passed, violations: [...]}.
func (c *Composer) ValidationPrompt(in ValidationPromptInput) string {
	content := c.AssembleContent(in.Sections, in.Content)
	if content == "" {
		content = "No content has been written yet."
	}

	rules := in.Rules
	if len(rules) > c.limits.MaxRules {
		rules = rules[:c.limits.MaxRules]
	}

	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert R&D grant proposal reviewer. Check the content of the proposal %q against the template rules below.\n\n", in.ProjectTitle)

	b.WriteString("PROJECT:\n")
	fmt.Fprintf(&b, "- Title: %q\n", in.ProjectTitle)
	if in.ProjectDescription != "" {
		fmt.Fprintf(&b, "- Description: %q\n", in.ProjectDescription)
	}
	if in.Program != "" {
		fmt.Fprintf(&b, "- Program: %s\n", in.Program)
	}
	b.WriteString("\n")

	b.WriteString("PROPOSAL CONTENT:\n")
	b.WriteString(content)
	b.WriteString("\n\n")

	b.WriteString("RULES TO CHECK:\n")
	for i, r := range rules {
		requirement := "OPTIONAL"
		if r.IsRequired {
			requirement = "REQUIRED"
		}
		category := r.Category
		if category == "" {
			category = "general"
		}
		fmt.Fprintf(&b, "%d. [%s] %s (id: %s, priority: %d, category: %s)\n   %s\n",
			i+1, requirement, r.Title, r.ID, r.Priority, category,
			TruncatePlain(r.Description, c.limits.RuleDescriptionLimit))
	}
	b.WriteString("\n")

	b.WriteString(`TASK:
Check the proposal content against every rule and report each violation with
the rule's id and title, a description of the violation, and a severity.

RESPONSE FORMAT:
Return ONLY a valid JSON object, no explanations, no markdown:

{
  "passed": false,
  "violations": [
    {
      "ruleId": "rule-id",
      "title": "violated rule title",
      "description": "what is wrong and where",
      "severity": "high"
    }
  ]
}

- severity must be one of "low", "medium", "high", "critical"
- violations of REQUIRED rules must be "high" or "critical"
- if no rule is violated return {"passed": true, "violations": []}

Now check the proposal and return the result as JSON:`)

	return b.String()
}

// AssembleContent concatenates section content in template order, capped at
// the total validation budget with a truncation marker when cut. Sections
// without content are skipped.
func (c *Composer) AssembleContent(sections []proposal.Section, content map[string]proposal.SectionContent) string {
	var b strings.Builder
	for _, s := range sections {
		sc, ok := content[s.ID]
		if !ok || strings.TrimSpace(sc.Text) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## %s\n%s", s.Title, sc.Text)
	}
	return Truncate(b.String(), c.limits.ValidationCharBudget)
}

func hasEntry(entries []Entry, sectionID string) bool {
	for _, e := range entries {
		if e.SectionID == sectionID {
			return true
		}
	}
	return false
}

func renderEntries(entries []Entry, maxPerEntry int) string {
	var b strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&b, "--- Section %d: %q ---\n", i+1, e.Title)
		b.WriteString(Truncate(e.Content, maxPerEntry))
		b.WriteString("\n")
	}
	return b.String()
}
