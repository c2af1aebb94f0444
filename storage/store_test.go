package storage

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/draftforge/proposal"
)

// newTestStore spins up an embedded JetStream server for the test.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	opts := &server.Options{
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
		NoSigs:    true,
	}
	ns, err := server.NewServer(opts)
	require.NoError(t, err)

	go ns.Start()
	require.True(t, ns.ReadyForConnections(5*time.Second), "embedded NATS did not start")
	t.Cleanup(ns.Shutdown)

	conn, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	js, err := jetstream.New(conn)
	require.NoError(t, err)

	store, err := NewStore(context.Background(), js)
	require.NoError(t, err)
	return store
}

func sampleTemplate() *proposal.Template {
	return &proposal.Template{
		Program: "horizon-europe",
		Name:    "Standard Proposal",
		Sections: []proposal.Section{
			{ID: "summary", Title: "Executive Summary", Required: true, Format: proposal.FormatText},
			{ID: "method", Title: "Methodology", Format: proposal.FormatText},
		},
	}
}

func TestTemplateRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tmpl := sampleTemplate()
	require.NoError(t, store.CreateTemplate(ctx, tmpl))
	require.NotEmpty(t, tmpl.ID)

	got, err := store.GetTemplate(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Standard Proposal", got.Name)
	assert.Len(t, got.Sections, 2)

	got.Name = "Renamed"
	require.NoError(t, store.UpdateTemplate(ctx, got))

	got, err = store.GetTemplate(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	all, err := store.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetTemplateNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetTemplate(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRulesScopedToTemplate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, r := range []proposal.Rule{
		{TemplateID: "tmpl-a", Title: "Page limit", Description: "Max 30 pages", Priority: 8, IsRequired: true},
		{TemplateID: "tmpl-a", Title: "Budget cap", Description: "Under 2M", Priority: 5},
		{TemplateID: "tmpl-b", Title: "Other template rule", Description: "Elsewhere"},
	} {
		rule := r
		require.NoError(t, store.CreateRule(ctx, &rule))
	}

	rules, err := store.ListRules(ctx, "tmpl-a")
	require.NoError(t, err)
	assert.Len(t, rules, 2)
	for _, r := range rules {
		assert.Equal(t, "tmpl-a", r.TemplateID)
	}

	rules, err = store.ListRules(ctx, "tmpl-missing")
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestLoadTemplateWithRules(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tmpl := sampleTemplate()
	require.NoError(t, store.CreateTemplate(ctx, tmpl))
	require.NoError(t, store.CreateRule(ctx, &proposal.Rule{
		TemplateID: tmpl.ID, Title: "Page limit", Description: "Max 30 pages",
	}))

	got, rules, err := store.LoadTemplateWithRules(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, tmpl.ID, got.ID)
	assert.Len(t, rules, 1)
}

func TestProjectRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := &proposal.Project{
		TemplateID:  "tmpl-1",
		Title:       "Solar Microgrid",
		Description: "Village-scale storage",
	}
	require.NoError(t, store.CreateProject(ctx, p))
	require.NotEmpty(t, p.ID)
	assert.Equal(t, proposal.ProjectStatusDraft, p.Status)

	got, err := store.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Solar Microgrid", got.Title)
	assert.NotNil(t, got.Content)

	all, err := store.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSaveProjectContentBumpsVersions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := &proposal.Project{TemplateID: "tmpl-1", Title: "Solar Microgrid", Description: "d"}
	require.NoError(t, store.CreateProject(ctx, p))

	require.NoError(t, store.SaveProjectContent(ctx, p.ID, map[string]string{"summary": "v1 text"}, true))

	content, err := store.LoadProjectContent(ctx, p.ID)
	require.NoError(t, err)
	require.Contains(t, content, "summary")
	assert.Equal(t, "v1 text", content["summary"].Text)
	assert.Equal(t, 1, content["summary"].Version)
	assert.True(t, content["summary"].AIGenerated)

	// Overwrite bumps the version; untouched sections keep theirs.
	require.NoError(t, store.SaveProjectContent(ctx, p.ID, map[string]string{
		"summary": "v2 text",
		"method":  "method text",
	}, false))

	content, err = store.LoadProjectContent(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, content["summary"].Version)
	assert.False(t, content["summary"].AIGenerated)
	assert.Equal(t, 1, content["method"].Version)
}

func TestSaveProjectContentMissingProject(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveProjectContent(context.Background(), "missing", map[string]string{"s": "x"}, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidationHistoryAppendOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rec := &proposal.ValidationRecord{
			ProjectID:    "proj-1",
			TemplateID:   "tmpl-1",
			Passed:       i == 2,
			Violations:   []proposal.Violation{},
			RulesChecked: 5,
			ValidatedAt:  time.Now().UTC(),
		}
		require.NoError(t, store.SaveValidationResult(ctx, rec))
		require.NotEmpty(t, rec.ID)
	}

	records, err := store.ListValidations(ctx, "proj-1")
	require.NoError(t, err)
	assert.Len(t, records, 3)

	records, err = store.ListValidations(ctx, "proj-other")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSaveValidationResultRequiresProject(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveValidationResult(context.Background(), &proposal.ValidationRecord{})
	assert.Error(t, err)
}
