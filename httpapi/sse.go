// httpapi/sse.go
// --------------
// FrameSink implementation over an http.ResponseWriter using server-sent
// events. Headers are written lazily on the first frame so the gateway can
// still reject a request with a plain JSON error before the stream starts.
package httpapi

import (
	"fmt"
	"net/http"
	"sync"

	cinebridge "github.com/cinebridge/cine-bridge"
)

type sseSink struct {
	w  http.ResponseWriter
	fl http.Flusher

	mu      sync.Mutex
	started bool
	closed  bool
}

func newSSESink(w http.ResponseWriter, fl http.Flusher) *sseSink {
	return &sseSink{w: w, fl: fl}
}

func (s *sseSink) Write(f cinebridge.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return cinebridge.ErrSinkClosed
	}
	if !s.started {
		s.started = true
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache, no-transform")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		s.w.WriteHeader(http.StatusOK)
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", f.Event, f.Data); err != nil {
		return err
	}
	s.fl.Flush()
	return nil
}

// Close flushes and marks the sink closed. Safe to call more than once.
func (s *sseSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.started {
		s.fl.Flush()
	}
	return nil
}
