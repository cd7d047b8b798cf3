// httpapi/server.go
// -----------------
// HTTP transport for the recommendation gateway: a JSON endpoint for the
// aggregate path, an SSE endpoint for the streaming path, plus health,
// limiter stats, and Prometheus metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	cinebridge "github.com/cinebridge/cine-bridge"
	"github.com/cinebridge/cine-bridge/internal/logging"
)

// Server exposes a Gateway over HTTP.
type Server struct {
	gateway *cinebridge.Gateway
	cfg     *cinebridge.ServerConfig
	httpSrv *http.Server
}

func NewServer(gateway *cinebridge.Gateway, cfg *cinebridge.ServerConfig) *Server {
	s := &Server{gateway: gateway, cfg: cfg}
	s.httpSrv = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the route tree. Exposed for httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/recommendations", s.handleRecommend)
	mux.HandleFunc("/v1/recommendations/stream", s.handleStream)
	mux.HandleFunc("/v1/limiter/stats", s.handleLimiterStats)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return ClientKeyMiddleware(s.cfg.AuthSecret)(mux)
}

func (s *Server) ListenAndServe() error {
	logging.Infof("httpapi: listening on %s", s.cfg.Listen)
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cinebridge.RecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeClassifiedError(w, cinebridge.NewValidationError("invalid JSON body: "+err.Error()))
		return
	}

	key := ClientKeyFrom(r.Context())
	resp, err := s.gateway.Recommend(r.Context(), key, &req)
	if err != nil {
		writeClassifiedError(w, cinebridge.Classify(err))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	var req cinebridge.RecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeClassifiedError(w, cinebridge.NewValidationError("invalid JSON body: "+err.Error()))
		return
	}

	key := ClientKeyFrom(r.Context())
	sink := newSSESink(w, flusher)

	// Admission and validation failures arrive before the sink is touched,
	// so they still go out as plain JSON errors.
	state, err := s.gateway.RecommendStream(r.Context(), key, &req, sink)
	if err != nil {
		writeClassifiedError(w, cinebridge.Classify(err))
		return
	}
	logging.Debugf("httpapi: stream for key %q ended %s", key, state)
}

func (s *Server) handleLimiterStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.gateway.Limiter().Stats())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Errorf("httpapi: encode response: %v", err)
	}
}

// writeClassifiedError maps a ClassifiedError onto an HTTP error payload.
// Rate-limit rejections additionally carry Retry-After and X-RateLimit-*
// headers so well-behaved clients can back off without parsing the body.
func writeClassifiedError(w http.ResponseWriter, ce *cinebridge.ClassifiedError) {
	status := ce.StatusHint
	if status == 0 {
		status = http.StatusInternalServerError
	}

	if ce.Kind == cinebridge.KindRateLimit {
		seconds := int64(math.Ceil(ce.RetryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
		if limit, ok := ce.Context["limit"]; ok {
			w.Header().Set("X-RateLimit-Limit", limit)
		}
		w.Header().Set("X-RateLimit-Remaining", "0")
	}

	writeJSON(w, status, map[string]interface{}{
		"error":     true,
		"errorType": ce.Kind,
		"message":   ce.Message,
	})
}
