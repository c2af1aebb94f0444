// Package storage persists templates, rules, projects, and validation
// records in NATS JetStream KV buckets.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/draftforge/draftforge/proposal"
)

// Bucket names for each record type.
const (
	BucketTemplates   = "DRAFTFORGE_TEMPLATES"
	BucketRules       = "DRAFTFORGE_RULES"
	BucketProjects    = "DRAFTFORGE_PROJECTS"
	BucketValidations = "DRAFTFORGE_VALIDATIONS"
)

// Store provides persistence backed by NATS KV.
type Store struct {
	templates   jetstream.KeyValue
	rules       jetstream.KeyValue
	projects    jetstream.KeyValue
	validations jetstream.KeyValue
}

// NewStore creates a Store with the given JetStream context, creating the
// KV buckets if they don't exist.
func NewStore(ctx context.Context, js jetstream.JetStream) (*Store, error) {
	templates, err := getOrCreateBucket(ctx, js, BucketTemplates)
	if err != nil {
		return nil, fmt.Errorf("create templates bucket: %w", err)
	}

	rules, err := getOrCreateBucket(ctx, js, BucketRules)
	if err != nil {
		return nil, fmt.Errorf("create rules bucket: %w", err)
	}

	projects, err := getOrCreateBucket(ctx, js, BucketProjects)
	if err != nil {
		return nil, fmt.Errorf("create projects bucket: %w", err)
	}

	validations, err := getOrCreateBucket(ctx, js, BucketValidations)
	if err != nil {
		return nil, fmt.Errorf("create validations bucket: %w", err)
	}

	return &Store{
		templates:   templates,
		rules:       rules,
		projects:    projects,
		validations: validations,
	}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("DraftForge %s storage", strings.ToLower(name)),
		History:     5, // Keep last 5 revisions
	})
}

// CreateTemplate stores a new template, assigning an id when absent.
func (s *Store) CreateTemplate(ctx context.Context, t *proposal.Template) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	if err := t.Validate(); err != nil {
		return fmt.Errorf("validate template: %w", err)
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal template: %w", err)
	}

	if _, err := s.templates.Create(ctx, t.ID, data); err != nil {
		return fmt.Errorf("store template: %w", err)
	}
	return nil
}

// GetTemplate retrieves a template by id.
func (s *Store) GetTemplate(ctx context.Context, id string) (*proposal.Template, error) {
	entry, err := s.templates.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get template: %w", err)
	}

	var t proposal.Template
	if err := json.Unmarshal(entry.Value(), &t); err != nil {
		return nil, fmt.Errorf("unmarshal template: %w", err)
	}
	return &t, nil
}

// UpdateTemplate overwrites an existing template.
func (s *Store) UpdateTemplate(ctx context.Context, t *proposal.Template) error {
	if t.ID == "" {
		return fmt.Errorf("template id is required")
	}
	t.UpdatedAt = time.Now().UTC()

	if err := t.Validate(); err != nil {
		return fmt.Errorf("validate template: %w", err)
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal template: %w", err)
	}

	if _, err := s.templates.Put(ctx, t.ID, data); err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return nil
}

// ListTemplates returns all templates.
func (s *Store) ListTemplates(ctx context.Context) ([]*proposal.Template, error) {
	keys, err := s.templates.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list template keys: %w", err)
	}

	templates := make([]*proposal.Template, 0, len(keys))
	for _, key := range keys {
		entry, err := s.templates.Get(ctx, key)
		if err != nil {
			continue // Skip entries that fail to load
		}
		var t proposal.Template
		if err := json.Unmarshal(entry.Value(), &t); err != nil {
			continue
		}
		templates = append(templates, &t)
	}
	return templates, nil
}

// CreateRule stores a new rule, assigning an id when absent. Rules are
// keyed by "<templateID>.<ruleID>" so a template's rules group together.
func (s *Store) CreateRule(ctx context.Context, r *proposal.Rule) error {
	if r.TemplateID == "" {
		return fmt.Errorf("rule template id is required")
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	if err := r.Validate(); err != nil {
		return fmt.Errorf("validate rule: %w", err)
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal rule: %w", err)
	}

	if _, err := s.rules.Create(ctx, ruleKey(r.TemplateID, r.ID), data); err != nil {
		return fmt.Errorf("store rule: %w", err)
	}
	return nil
}

// ListRules returns all rules owned by a template.
func (s *Store) ListRules(ctx context.Context, templateID string) ([]proposal.Rule, error) {
	keys, err := s.rules.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list rule keys: %w", err)
	}

	prefix := templateID + "."
	rules := make([]proposal.Rule, 0)
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		entry, err := s.rules.Get(ctx, key)
		if err != nil {
			continue
		}
		var r proposal.Rule
		if err := json.Unmarshal(entry.Value(), &r); err != nil {
			continue
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// DeleteRule removes a rule.
func (s *Store) DeleteRule(ctx context.Context, templateID, ruleID string) error {
	if err := s.rules.Delete(ctx, ruleKey(templateID, ruleID)); err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return nil
}

// LoadTemplateWithRules loads a template and its rule set in one call.
func (s *Store) LoadTemplateWithRules(ctx context.Context, templateID string) (*proposal.Template, []proposal.Rule, error) {
	tmpl, err := s.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, nil, err
	}

	rules, err := s.ListRules(ctx, templateID)
	if err != nil {
		return nil, nil, err
	}
	return tmpl, rules, nil
}

// CreateProject stores a new project, assigning an id when absent.
func (s *Store) CreateProject(ctx context.Context, p *proposal.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = proposal.ProjectStatusDraft
	}
	if p.Content == nil {
		p.Content = make(map[string]proposal.SectionContent)
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := p.Validate(); err != nil {
		return fmt.Errorf("validate project: %w", err)
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}

	if _, err := s.projects.Create(ctx, p.ID, data); err != nil {
		return fmt.Errorf("store project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by id.
func (s *Store) GetProject(ctx context.Context, id string) (*proposal.Project, error) {
	entry, err := s.projects.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}

	var p proposal.Project
	if err := json.Unmarshal(entry.Value(), &p); err != nil {
		return nil, fmt.Errorf("unmarshal project: %w", err)
	}
	return &p, nil
}

// ListProjects returns all projects.
func (s *Store) ListProjects(ctx context.Context) ([]*proposal.Project, error) {
	keys, err := s.projects.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list project keys: %w", err)
	}

	projects := make([]*proposal.Project, 0, len(keys))
	for _, key := range keys {
		entry, err := s.projects.Get(ctx, key)
		if err != nil {
			continue
		}
		var p proposal.Project
		if err := json.Unmarshal(entry.Value(), &p); err != nil {
			continue
		}
		projects = append(projects, &p)
	}
	return projects, nil
}

// LoadProjectContent returns a project's current section content map.
func (s *Store) LoadProjectContent(ctx context.Context, projectID string) (map[string]proposal.SectionContent, error) {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.Content == nil {
		return map[string]proposal.SectionContent{}, nil
	}
	return p.Content, nil
}

// SaveProjectContent merges section text into the project's content map.
// Each overwritten section's version is bumped; versions never decrement.
// Writes are last-writer-wins: there is no compare-and-set, so two
// concurrent generation runs for the same project race and the later
// persist sticks.
func (s *Store) SaveProjectContent(ctx context.Context, projectID string, updates map[string]string, aiGenerated bool) error {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return err
	}

	p.Content = proposal.MergeContent(p.Content, updates, aiGenerated, time.Now().UTC())
	p.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}

	if _, err := s.projects.Put(ctx, p.ID, data); err != nil {
		return fmt.Errorf("save project content: %w", err)
	}
	return nil
}

// SaveValidationResult appends a validation record to the project's
// history. Records are immutable once written.
func (s *Store) SaveValidationResult(ctx context.Context, record *proposal.ValidationRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.ProjectID == "" {
		return fmt.Errorf("validation record project id is required")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal validation record: %w", err)
	}

	if _, err := s.validations.Create(ctx, validationKey(record.ProjectID, record.ID), data); err != nil {
		return fmt.Errorf("store validation record: %w", err)
	}
	return nil
}

// ListValidations returns a project's validation history.
func (s *Store) ListValidations(ctx context.Context, projectID string) ([]*proposal.ValidationRecord, error) {
	keys, err := s.validations.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list validation keys: %w", err)
	}

	prefix := projectID + "."
	records := make([]*proposal.ValidationRecord, 0)
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		entry, err := s.validations.Get(ctx, key)
		if err != nil {
			continue
		}
		var r proposal.ValidationRecord
		if err := json.Unmarshal(entry.Value(), &r); err != nil {
			continue
		}
		records = append(records, &r)
	}
	return records, nil
}

func ruleKey(templateID, ruleID string) string {
	return templateID + "." + ruleID
}

func validationKey(projectID, recordID string) string {
	return projectID + "." + recordID
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "key not found")
}
