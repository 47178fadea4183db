package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/jonathan/grade-explorer/internal/pipeline"
	"github.com/jonathan/grade-explorer/internal/types"
)

// SSE event names used by /query/stream.
const (
	eventStep     = "step"
	eventComplete = "complete"
)

var errStreamingUnsupported = errors.New("streaming not supported")

// progressStream writes pipeline progress as server-sent events. Events carry
// increasing ids. Progress callbacks may fire from several goroutines, so
// writes are serialized.
type progressStream struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	lastID  int
}

func newProgressStream(w http.ResponseWriter) (*progressStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errStreamingUnsupported
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	return &progressStream{w: w, flusher: flusher}, nil
}

// Step sends one pipeline progress event.
func (s *progressStream) Step(event pipeline.ProgressEvent) error {
	return s.send(eventStep, event)
}

// Complete sends the final response. Nothing is sent after it.
func (s *progressStream) Complete(resp *types.QueryResponse) error {
	return s.send(eventComplete, resp)
}

func (s *progressStream) send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: %s\ndata: %s\n\n", s.lastID, event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
