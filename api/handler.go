// Package api exposes the HTTP surface: template and project CRUD, the SSE
// generation stream, synchronous validation, and document analysis.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/draftforge/draftforge/analyze"
	"github.com/draftforge/draftforge/generate"
	"github.com/draftforge/draftforge/metrics"
	"github.com/draftforge/draftforge/proposal"
	"github.com/draftforge/draftforge/storage"
	"github.com/draftforge/draftforge/validate"
)

// maxBodySize limits request bodies (largest legitimate payload is an
// extracted call document).
const maxBodySize = 4 << 20 // 4 MB

// Store is the persistence surface the handler needs. Satisfied by
// *storage.Store.
type Store interface {
	CreateTemplate(ctx context.Context, t *proposal.Template) error
	GetTemplate(ctx context.Context, id string) (*proposal.Template, error)
	ListTemplates(ctx context.Context) ([]*proposal.Template, error)
	CreateRule(ctx context.Context, r *proposal.Rule) error
	ListRules(ctx context.Context, templateID string) ([]proposal.Rule, error)
	LoadTemplateWithRules(ctx context.Context, templateID string) (*proposal.Template, []proposal.Rule, error)
	CreateProject(ctx context.Context, p *proposal.Project) error
	GetProject(ctx context.Context, id string) (*proposal.Project, error)
	ListProjects(ctx context.Context) ([]*proposal.Project, error)
	ListValidations(ctx context.Context, projectID string) ([]*proposal.ValidationRecord, error)
}

// Generator runs a full generation pass or a single-section rewrite.
// Satisfied by *generate.Orchestrator.
type Generator interface {
	Run(ctx context.Context, project *proposal.Project, tmpl *proposal.Template, sink generate.EventSink) (map[string]string, error)
	RegenerateSection(ctx context.Context, project *proposal.Project, tmpl *proposal.Template, sectionID, guidance string) (string, error)
}

// Validator runs one compliance check. Satisfied by *validate.Engine.
type Validator interface {
	Check(ctx context.Context, project *proposal.Project, tmpl *proposal.Template, rules []proposal.Rule) (*proposal.ValidationRecord, error)
}

// Analyzer extracts structure from document text. Satisfied by
// *analyze.Analyzer.
type Analyzer interface {
	InferTemplate(ctx context.Context, text, programName string) (*proposal.Template, error)
	ExtractRules(ctx context.Context, text, templateID string) ([]proposal.Rule, error)
}

// Handler wires the HTTP endpoints to the pipelines.
type Handler struct {
	store     Store
	generator Generator
	validator Validator
	analyzer  Analyzer
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewHandler creates a handler. metrics may be nil.
func NewHandler(store Store, generator Generator, validator Validator, analyzer Analyzer, m *metrics.Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:     store,
		generator: generator,
		validator: validator,
		analyzer:  analyzer,
		metrics:   m,
		logger:    logger,
	}
}

// Register mounts all endpoints on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/templates", h.handleCreateTemplate)
	mux.HandleFunc("GET /api/templates", h.handleListTemplates)
	mux.HandleFunc("GET /api/templates/{id}", h.handleGetTemplate)
	mux.HandleFunc("POST /api/templates/analyze", h.handleAnalyzeTemplate)
	mux.HandleFunc("POST /api/templates/{id}/rules", h.handleCreateRule)
	mux.HandleFunc("GET /api/templates/{id}/rules", h.handleListRules)
	mux.HandleFunc("POST /api/templates/{id}/rules/extract", h.handleExtractRules)

	mux.HandleFunc("POST /api/projects", h.handleCreateProject)
	mux.HandleFunc("GET /api/projects", h.handleListProjects)
	mux.HandleFunc("GET /api/projects/{id}", h.handleGetProject)
	mux.HandleFunc("POST /api/projects/{id}/generate", h.handleGenerate)
	mux.HandleFunc("POST /api/projects/{id}/sections/{sectionId}/generate", h.handleRegenerateSection)
	mux.HandleFunc("POST /api/projects/{id}/validate", h.handleValidate)
	mux.HandleFunc("GET /api/projects/{id}/validations", h.handleListValidations)

	mux.HandleFunc("GET /healthz", h.handleHealthz)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}
}

func (h *Handler) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var tmpl proposal.Template
	if !h.decode(w, r, &tmpl) {
		return
	}

	if err := h.store.CreateTemplate(r.Context(), &tmpl); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, tmpl)
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.ListTemplates(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to list templates")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"templates": templates, "total": len(templates)})
}

func (h *Handler) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := h.store.GetTemplate(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err, "template")
		return
	}
	h.writeJSON(w, http.StatusOK, tmpl)
}

// analyzeRequest is the body for both analysis endpoints. Text is the
// already-extracted document text; extraction happens upstream.
type analyzeRequest struct {
	Text    string `json:"text"`
	Program string `json:"program,omitempty"`
}

func (h *Handler) handleAnalyzeTemplate(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !h.decode(w, r, &req) {
		return
	}

	tmpl, err := h.analyzer.InferTemplate(r.Context(), req.Text, req.Program)
	if err != nil {
		h.logger.Warn("Template analysis failed", slog.String("error", err.Error()))
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.store.CreateTemplate(r.Context(), tmpl); err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to store inferred template")
		return
	}
	h.writeJSON(w, http.StatusCreated, tmpl)
}

func (h *Handler) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var rule proposal.Rule
	if !h.decode(w, r, &rule) {
		return
	}
	rule.TemplateID = r.PathValue("id")
	if rule.SourceType == "" {
		rule.SourceType = proposal.RuleSourceManual
	}

	if err := h.store.CreateRule(r.Context(), &rule); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, rule)
}

func (h *Handler) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.store.ListRules(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to list rules")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"rules": rules, "total": len(rules)})
}

func (h *Handler) handleExtractRules(w http.ResponseWriter, r *http.Request) {
	templateID := r.PathValue("id")
	if _, err := h.store.GetTemplate(r.Context(), templateID); err != nil {
		h.writeStoreError(w, err, "template")
		return
	}

	var req analyzeRequest
	if !h.decode(w, r, &req) {
		return
	}

	rules, err := h.analyzer.ExtractRules(r.Context(), req.Text, templateID)
	if err != nil {
		h.logger.Warn("Rule extraction failed",
			slog.String("template_id", templateID),
			slog.String("error", err.Error()))
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	stored := make([]proposal.Rule, 0, len(rules))
	for i := range rules {
		if err := h.store.CreateRule(r.Context(), &rules[i]); err != nil {
			h.logger.Warn("Failed to store extracted rule",
				slog.String("title", rules[i].Title),
				slog.String("error", err.Error()))
			continue
		}
		stored = append(stored, rules[i])
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{"rules": stored, "total": len(stored)})
}

func (h *Handler) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var project proposal.Project
	if !h.decode(w, r, &project) {
		return
	}

	if err := h.store.CreateProject(r.Context(), &project); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, project)
}

func (h *Handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.ListProjects(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"projects": projects, "total": len(projects)})
}

func (h *Handler) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.store.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err, "project")
		return
	}
	h.writeJSON(w, http.StatusOK, project)
}

// handleGenerate streams a full generation run as SSE. The run itself is
// detached from the request context: a client that disconnects mid-stream
// does not cancel generation, and the finished content is still persisted.
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	project, err := h.store.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err, "project")
		return
	}

	tmpl, err := h.store.GetTemplate(r.Context(), project.TemplateID)
	if err != nil {
		h.writeStoreError(w, err, "template")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	flusher.Flush()

	sink := newSSESink(w, flusher)

	runCtx := context.WithoutCancel(r.Context())
	results, runErr := h.generator.Run(runCtx, project, tmpl, sink)

	if h.metrics != nil {
		h.metrics.ObserveGenerationRun(runErr != nil)
		for _, content := range results {
			h.metrics.ObserveSection(content == "")
		}
	}
}

// regenerateRequest is the body for a single-section rewrite. Prompt is
// optional free-form guidance for the model.
type regenerateRequest struct {
	Prompt string `json:"prompt,omitempty"`
}

// handleRegenerateSection rewrites one section synchronously and returns
// the new text. The content is also persisted on the project.
func (h *Handler) handleRegenerateSection(w http.ResponseWriter, r *http.Request) {
	project, err := h.store.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err, "project")
		return
	}

	tmpl, err := h.store.GetTemplate(r.Context(), project.TemplateID)
	if err != nil {
		h.writeStoreError(w, err, "template")
		return
	}

	var req regenerateRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}

	sectionID := r.PathValue("sectionId")
	text, err := h.generator.RegenerateSection(r.Context(), project, tmpl, sectionID, req.Prompt)
	if err != nil {
		if errors.Is(err, generate.ErrUnknownSection) {
			h.writeError(w, http.StatusNotFound, "section not found")
			return
		}
		h.logger.Warn("Section regeneration failed",
			slog.String("project_id", project.ID),
			slog.String("section_id", sectionID),
			slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "failed to generate section content")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"sectionId": sectionID,
		"text":      text,
	})
}

// handleValidate returns a ValidationRecord with HTTP 200 even when the
// check degraded internally; failure is reported in-band as a synthetic
// violation.
func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	project, err := h.store.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err, "project")
		return
	}

	tmpl, rules, err := h.store.LoadTemplateWithRules(r.Context(), project.TemplateID)
	if err != nil {
		h.writeStoreError(w, err, "template")
		return
	}

	record, err := h.validator.Check(r.Context(), project, tmpl, rules)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "validation failed")
		return
	}

	if h.metrics != nil {
		h.metrics.ObserveValidation(record.Passed, record.ViolationsCount)
	}
	h.writeJSON(w, http.StatusOK, record)
}

func (h *Handler) handleListValidations(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListValidations(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to list validations")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"validations": records, "total": len(records)})
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads a JSON body, answering 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error, kind string) {
	if errors.Is(err, storage.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, kind+" not found")
		return
	}
	h.writeError(w, http.StatusInternalServerError, "failed to load "+kind)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("Failed to write JSON response", slog.String("error", err.Error()))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
