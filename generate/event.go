// Package generate drives section-by-section proposal drafting. One
// orchestrator run walks the template's sections in order, calls the LLM for
// each, accumulates successful content as context for later sections, and
// reports progress through an EventSink.
package generate

import "sync"

// EventType identifies a progress event.
type EventType string

const (
	EventStart           EventType = "start"
	EventProgress        EventType = "progress"
	EventSectionComplete EventType = "section-complete"
	EventSectionError    EventType = "section-error"
	EventComplete        EventType = "complete"
	EventError           EventType = "error"
)

// Event is one progress update emitted during a generation run. The stream
// is strictly ordered: one start, then per section a progress event followed
// by section-complete or section-error, then exactly one terminal complete
// or error event.
type Event struct {
	Type           EventType         `json:"type"`
	Total          int               `json:"total,omitempty"`
	Current        int               `json:"current,omitempty"`
	SectionID      string            `json:"sectionId,omitempty"`
	SectionTitle   string            `json:"sectionTitle,omitempty"`
	SectionContent string            `json:"sectionContent,omitempty"`
	Message        string            `json:"message,omitempty"`
	Results        map[string]string `json:"results,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// EventSink receives progress events. Implementations may fail (a closed
// SSE connection); the orchestrator ignores send errors and keeps running.
type EventSink interface {
	Send(Event) error
}

// Collector is an in-memory EventSink for tests and synchronous callers.
type Collector struct {
	mu     sync.Mutex
	events []Event

	// Err, when set, is returned from every Send to simulate a dead sink.
	Err error
}

// Send records the event.
func (c *Collector) Send(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.events = append(c.events, ev)
	return nil
}

// Events returns a copy of everything received so far.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}
