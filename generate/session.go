package generate

import (
	"time"

	"github.com/draftforge/draftforge/proposal"
)

// SectionState tracks where one section is in the generation lifecycle.
type SectionState string

const (
	StatePending    SectionState = "pending"
	StateGenerating SectionState = "generating"
	StateCompleted  SectionState = "completed"
	StateError      SectionState = "error"
)

// Session is the transient per-run state of one generation request. It is
// owned by a single orchestrator run and is not safe for concurrent use.
type Session struct {
	ProjectID string
	StartedAt time.Time

	states  map[string]SectionState
	results map[string]string
}

// NewSession creates a session with every section pending.
func NewSession(projectID string, sections []proposal.Section) *Session {
	states := make(map[string]SectionState, len(sections))
	for _, s := range sections {
		states[s.ID] = StatePending
	}
	return &Session{
		ProjectID: projectID,
		StartedAt: time.Now(),
		states:    states,
		results:   make(map[string]string, len(sections)),
	}
}

// State returns the current state of a section.
func (s *Session) State(sectionID string) SectionState {
	return s.states[sectionID]
}

func (s *Session) markGenerating(sectionID string) {
	s.states[sectionID] = StateGenerating
}

func (s *Session) markCompleted(sectionID, content string) {
	s.states[sectionID] = StateCompleted
	s.results[sectionID] = content
}

// markError stores empty content so the final result map still carries a
// key for every attempted section.
func (s *Session) markError(sectionID string) {
	s.states[sectionID] = StateError
	s.results[sectionID] = ""
}

// Results returns a copy of the per-section content map.
func (s *Session) Results() map[string]string {
	out := make(map[string]string, len(s.results))
	for k, v := range s.results {
		out[k] = v
	}
	return out
}
