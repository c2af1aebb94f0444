package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/draftforge/draftforge/generate"
)

// sseSink streams generation events to an HTTP response as Server-Sent
// Events. Each event is one "data: {json}" chunk. After the first write
// failure the sink goes dead and reports the error for every later send;
// the orchestrator ignores those errors and keeps generating.
type sseSink struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	dead    error
}

func newSSESink(w http.ResponseWriter, flusher http.Flusher) *sseSink {
	return &sseSink{w: w, flusher: flusher}
}

// Send implements generate.EventSink.
func (s *sseSink) Send(ev generate.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dead != nil {
		return s.dead
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		s.dead = fmt.Errorf("client gone: %w", err)
		return s.dead
	}
	s.flusher.Flush()
	return nil
}
