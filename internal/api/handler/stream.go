package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/KonstantinidouCh/multi-llm-eval/internal/domain"
)

// streamSink writes each pipeline event as one JSON line followed by a
// blank line, flushing after every event. Stages cannot emit concurrently
// by design, but the mutex enforces it rather than assuming it.
type streamSink struct {
	mu sync.Mutex
	w  http.ResponseWriter
}

func newStreamSink(w http.ResponseWriter) *streamSink {
	return &streamSink{w: w}
}

func (s *streamSink) Emit(event domain.StageEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal stage event: %v", err)
		return
	}

	if _, err := s.w.Write(append(data, '\n', '\n')); err != nil {
		return
	}
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
}
