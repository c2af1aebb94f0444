package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/draftforge/draftforge/llm"
	"github.com/draftforge/draftforge/prompt"
	"github.com/draftforge/draftforge/proposal"
)

// ContentStore persists generated section content. Implemented by the
// storage package; a nil store disables persistence (useful in tests).
type ContentStore interface {
	SaveProjectContent(ctx context.Context, projectID string, updates map[string]string, aiGenerated bool) error
}

// Config tunes one orchestrator.
type Config struct {
	// Temperature for drafting calls.
	Temperature float64

	// MaxOutputTokens is the hard ceiling on tokens per section. A section
	// with MaxLength set requests min(MaxOutputTokens, MaxLength/2).
	MaxOutputTokens int

	// Capability routed to the model registry.
	Capability string
}

// DefaultConfig returns the standard drafting settings.
func DefaultConfig() Config {
	return Config{
		Temperature:     0.7,
		MaxOutputTokens: 4000,
		Capability:      "drafting",
	}
}

// Orchestrator generates all sections of a proposal sequentially. Sections
// are written in template order because each prompt depends on the
// accumulated content of every prior section; parallelizing would break
// that consistency guarantee.
type Orchestrator struct {
	client   llm.CompletionClient
	composer *prompt.Composer
	store    ContentStore
	config   Config
	logger   *slog.Logger
}

// NewOrchestrator creates an orchestrator. store may be nil.
func NewOrchestrator(client llm.CompletionClient, composer *prompt.Composer, store ContentStore, cfg Config, logger *slog.Logger) *Orchestrator {
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = DefaultConfig().MaxOutputTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultConfig().Temperature
	}
	if cfg.Capability == "" {
		cfg.Capability = DefaultConfig().Capability
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		client:   client,
		composer: composer,
		store:    store,
		config:   cfg,
		logger:   logger,
	}
}

// Run generates every section of the template for the project, emitting
// progress events to sink as it goes. Individual section failures do not
// stop the run: the failed section gets empty content and generation
// continues. The returned map always has one key per template section.
//
// Run is not wired to sink failures. A consumer that disconnects mid-stream
// does not stop generation; remaining sections are still generated and
// persisted.
func (o *Orchestrator) Run(ctx context.Context, project *proposal.Project, tmpl *proposal.Template, sink EventSink) (results map[string]string, err error) {
	session := NewSession(project.ID, tmpl.Sections)
	acc := prompt.NewAccumulator()
	total := len(tmpl.Sections)
	persisted := make(map[string]bool, total)

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Generation run panicked",
				slog.String("project_id", project.ID),
				slog.Any("panic", r))
			o.emit(sink, Event{
				Type:  EventError,
				Error: fmt.Sprintf("generation failed: %v", r),
			})
			results = session.Results()
			err = fmt.Errorf("generation panicked: %v", r)
		}
	}()

	o.logger.Info("Starting generation run",
		slog.String("project_id", project.ID),
		slog.String("template_id", tmpl.ID),
		slog.Int("sections", total))

	o.emit(sink, Event{
		Type:    EventStart,
		Total:   total,
		Current: 0,
		Message: "Starting content generation",
	})

	for i, section := range tmpl.Sections {
		current := i + 1
		session.markGenerating(section.ID)

		o.emit(sink, Event{
			Type:         EventProgress,
			Total:        total,
			Current:      current,
			SectionID:    section.ID,
			SectionTitle: section.Title,
			Message:      fmt.Sprintf("Writing section %q (%d/%d)", section.Title, current, total),
		})

		content, genErr := o.generateSection(ctx, project, tmpl, i, acc)
		if genErr != nil {
			o.logger.Warn("Section generation failed",
				slog.String("project_id", project.ID),
				slog.String("section_id", section.ID),
				slog.String("error", genErr.Error()))

			session.markError(section.ID)
			o.emit(sink, Event{
				Type:         EventSectionError,
				Total:        total,
				Current:      current,
				SectionID:    section.ID,
				SectionTitle: section.Title,
				Error:        genErr.Error(),
				Message:      fmt.Sprintf("Section %q failed (%d/%d)", section.Title, current, total),
			})
			continue
		}

		session.markCompleted(section.ID, content)
		acc.Append(prompt.Entry{
			SectionID: section.ID,
			Title:     section.Title,
			Content:   content,
		})

		// Incremental persist so a crash mid-run loses at most one section.
		if o.persist(ctx, project.ID, map[string]string{section.ID: content}) {
			persisted[section.ID] = true
		}

		o.emit(sink, Event{
			Type:           EventSectionComplete,
			Total:          total,
			Current:        current,
			SectionID:      section.ID,
			SectionTitle:   section.Title,
			SectionContent: content,
			Message:        fmt.Sprintf("Section %q completed (%d/%d)", section.Title, current, total),
		})
	}

	final := session.Results()

	// Final write covers only what the incremental saves missed: failed
	// sections' empty markers and any save that errored mid-run. Sections
	// already persisted are skipped so their versions bump once per run.
	remaining := make(map[string]string, len(final))
	for id, content := range final {
		if !persisted[id] {
			remaining[id] = content
		}
	}
	o.persist(ctx, project.ID, remaining)

	o.emit(sink, Event{
		Type:    EventComplete,
		Total:   total,
		Current: total,
		Results: final,
		Message: "Content generation finished",
	})

	o.logger.Info("Generation run finished",
		slog.String("project_id", project.ID),
		slog.Int("sections", total),
		slog.Int("context_entries", acc.Len()))

	return final, nil
}

// ErrUnknownSection reports a section id that does not exist in the
// project's template.
var ErrUnknownSection = errors.New("unknown section")

// RegenerateSection rewrites a single section outside a full run, using the
// project's existing content from the other sections as context. guidance is
// the caller's free-form instruction and may be empty. The new content is
// persisted best-effort and returned either way.
func (o *Orchestrator) RegenerateSection(ctx context.Context, project *proposal.Project, tmpl *proposal.Template, sectionID, guidance string) (string, error) {
	var section *proposal.Section
	for i := range tmpl.Sections {
		if tmpl.Sections[i].ID == sectionID {
			section = &tmpl.Sections[i]
			break
		}
	}
	if section == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownSection, sectionID)
	}

	// The other sections' current content, in template order, keeps the
	// rewrite consistent with the rest of the document.
	var prior []prompt.Entry
	for _, s := range tmpl.Sections {
		if s.ID == sectionID {
			continue
		}
		sc, ok := project.Content[s.ID]
		if !ok || strings.TrimSpace(sc.Text) == "" {
			continue
		}
		prior = append(prior, prompt.Entry{
			SectionID: s.ID,
			Title:     s.Title,
			Content:   sc.Text,
		})
	}

	promptText := o.composer.RegeneratePrompt(prompt.RegeneratePromptInput{
		ProjectTitle:       project.Title,
		ProjectDescription: project.Description,
		Program:            tmpl.Program,
		Metadata:           project.Metadata,
		Section:            *section,
		Guidance:           guidance,
		Prior:              prior,
	})

	temp := o.config.Temperature
	resp, err := o.client.Complete(ctx, llm.Request{
		Capability:  o.config.Capability,
		Messages:    []llm.Message{{Role: "user", Content: promptText}},
		Temperature: &temp,
		MaxTokens:   o.maxTokens(*section),
	})
	if err != nil {
		return "", fmt.Errorf("regenerate section %s: %w", sectionID, err)
	}

	o.persist(ctx, project.ID, map[string]string{sectionID: resp.Content})

	o.logger.Info("Section regenerated",
		slog.String("project_id", project.ID),
		slog.String("section_id", sectionID),
		slog.Int("chars", len(resp.Content)))

	return resp.Content, nil
}

func (o *Orchestrator) generateSection(ctx context.Context, project *proposal.Project, tmpl *proposal.Template, index int, acc *prompt.Accumulator) (string, error) {
	section := tmpl.Sections[index]

	promptText := o.composer.SectionPrompt(prompt.SectionPromptInput{
		ProjectTitle:       project.Title,
		ProjectDescription: project.Description,
		Program:            tmpl.Program,
		Metadata:           project.Metadata,
		Sections:           tmpl.Sections,
		CurrentIndex:       index,
		Prior:              acc.Entries(),
		Criteria:           tmpl.Criteria,
	})

	temp := o.config.Temperature
	resp, err := o.client.Complete(ctx, llm.Request{
		Capability:  o.config.Capability,
		Messages:    []llm.Message{{Role: "user", Content: promptText}},
		Temperature: &temp,
		MaxTokens:   o.maxTokens(section),
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// maxTokens derives the per-section token limit: half the character limit,
// capped at the configured ceiling; the ceiling alone when MaxLength unset.
func (o *Orchestrator) maxTokens(section proposal.Section) int {
	if section.MaxLength <= 0 {
		return o.config.MaxOutputTokens
	}
	limit := section.MaxLength / 2
	if limit > o.config.MaxOutputTokens {
		return o.config.MaxOutputTokens
	}
	return limit
}

// persist writes content best-effort, reporting whether the save landed.
// Persistence failures are logged and swallowed; the run keeps going so
// generated content still reaches the caller through the event stream.
func (o *Orchestrator) persist(ctx context.Context, projectID string, updates map[string]string) bool {
	if o.store == nil || len(updates) == 0 {
		return false
	}
	if err := o.store.SaveProjectContent(ctx, projectID, updates, true); err != nil {
		o.logger.Warn("Incremental persist failed",
			slog.String("project_id", projectID),
			slog.String("error", err.Error()))
		return false
	}
	return true
}

// emit sends an event, ignoring sink failures. A consumer that went away
// must not abort generation.
func (o *Orchestrator) emit(sink EventSink, ev Event) {
	if sink == nil {
		return
	}
	if err := sink.Send(ev); err != nil {
		o.logger.Debug("Event sink rejected event",
			slog.String("type", string(ev.Type)),
			slog.String("error", err.Error()))
	}
}
