// gateway.go
// ----------
// The RecommendationGateway orchestrates the admission/response pipeline:
// rate-limiter check, structural validation, then either a retry-wrapped
// aggregate provider call (non-streaming) or a dispatcher-fed event stream
// (streaming). Retries are never applied mid-stream; a streaming failure
// becomes a single in-band error frame instead.
package cinebridge

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/cinebridge/cine-bridge/cache"
	"github.com/cinebridge/cine-bridge/internal/logging"
	"github.com/cinebridge/cine-bridge/internal/metrics"
	"github.com/cinebridge/cine-bridge/internal/timeutil"
)

// GatewayConfig wires the gateway's collaborators. Zero values get
// defaults; Validator defaults to FilterValidator, Cache to disabled.
type GatewayConfig struct {
	Limiter   RateLimiterConfig
	Retry     RetryPolicy
	Validator RequestValidator
	Cache     cache.Store
	CacheTTL  time.Duration
}

// Gateway is the request-admission and response-delivery pipeline in front
// of an upstream recommendation provider.
type Gateway struct {
	provider   RecommendationProvider
	limiter    *RateLimiter
	executor   *RetryExecutor
	dispatcher *StreamDispatcher
	validator  RequestValidator
	cache      cache.Store
	cacheTTL   time.Duration
}

// NewGateway creates a gateway around the given provider. The gateway owns
// its rate limiter; call Close to stop the limiter's janitor.
func NewGateway(provider RecommendationProvider, cfg GatewayConfig) *Gateway {
	validator := cfg.Validator
	if validator == nil {
		validator = FilterValidator{}
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Gateway{
		provider:   provider,
		limiter:    NewRateLimiter(cfg.Limiter),
		executor:   NewRetryExecutor(cfg.Retry),
		dispatcher: NewStreamDispatcher(),
		validator:  validator,
		cache:      cfg.Cache,
		cacheTTL:   cacheTTL,
	}
}

// Limiter exposes the gateway's rate limiter (stats endpoints, tests).
func (g *Gateway) Limiter() *RateLimiter {
	return g.limiter
}

// Close releases gateway-owned resources.
func (g *Gateway) Close() {
	g.limiter.Destroy()
	if g.cache != nil {
		if err := g.cache.Close(); err != nil {
			logging.Warnf("gateway: cache close: %v", err)
		}
	}
}

// admit runs the shared entry path: rate-limiter check, then structural
// validation. A limited key short-circuits before any provider work.
func (g *Gateway) admit(key string, req *RecommendationRequest) error {
	admission := g.limiter.Check(key)
	if admission.Limited {
		logging.Infof("gateway: rejected key %q (count=%d, reset in %dms)", key, admission.Count, admission.Remaining)
		return NewRateLimitError(time.Duration(admission.Remaining) * time.Millisecond).
			WithContext("limit", strconv.Itoa(g.limiter.Config().MaxRequests)).
			WithContext("count", strconv.Itoa(admission.Count))
	}
	if err := g.validator.Validate(req); err != nil {
		return Classify(err)
	}
	return nil
}

// Recommend is the non-streaming path: admission, validation, optional
// cache lookup, then the retry-wrapped provider call.
func (g *Gateway) Recommend(ctx context.Context, key string, req *RecommendationRequest) (*RecommendationResponse, error) {
	if err := g.admit(key, req); err != nil {
		return nil, err
	}

	start := time.Now()
	resp := &RecommendationResponse{
		RequestID: uuid.NewString(),
		Timestamp: timeutil.ToMs(start),
		Request:   req,
	}

	if movies, ok := g.cacheLookup(ctx, req); ok {
		resp.Movies = movies
		resp.Count = len(movies)
		resp.ElapsedMs = time.Since(start).Milliseconds()
		resp.Attempts = 0
		resp.Cached = true
		return resp, nil
	}

	movies, attempts, err := g.executor.Execute(ctx, func(ctx context.Context) ([]MovieRecord, error) {
		return g.provider.GetRecommendations(ctx, req)
	})
	if err != nil {
		logging.Errorf("gateway: provider %s failed after %d attempts: %v", g.provider.Name(), attempts, err)
		return nil, err
	}

	g.cacheStore(ctx, req, movies)

	resp.Movies = movies
	resp.Count = len(movies)
	resp.ElapsedMs = time.Since(start).Milliseconds()
	resp.Attempts = attempts
	return resp, nil
}

// RecommendStream is the streaming path. Admission and validation failures
// are returned before anything touches the sink, so transports can still
// send a plain error response. Once the provider stream is handed to the
// dispatcher, all failures are in-band and the terminal state is returned.
func (g *Gateway) RecommendStream(ctx context.Context, key string, req *RecommendationRequest, sink FrameSink) (StreamState, error) {
	if err := g.admit(key, req); err != nil {
		return "", err
	}

	source, err := g.provider.GetRecommendationsStream(ctx, req)
	if err != nil {
		// The stream never opened; deliver the failure as the session's
		// single error frame rather than refusing the response.
		ce := Classify(err)
		logging.Errorf("gateway: provider %s stream open failed: %v", g.provider.Name(), ce)
		failed := make(chan StreamEvent, 1)
		failed <- ErrorEvent(ce)
		close(failed)
		source = failed
	}

	return g.dispatcher.Run(ctx, source, sink), nil
}

func (g *Gateway) cacheLookup(ctx context.Context, req *RecommendationRequest) ([]MovieRecord, bool) {
	if g.cache == nil {
		return nil, false
	}
	raw, err := g.cache.Get(ctx, req.CacheKey())
	if err != nil {
		if err != cache.ErrMiss {
			logging.Warnf("gateway: cache get: %v", err)
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	var movies []MovieRecord
	if err := json.Unmarshal(raw, &movies); err != nil {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return movies, true
}

func (g *Gateway) cacheStore(ctx context.Context, req *RecommendationRequest, movies []MovieRecord) {
	if g.cache == nil || len(movies) == 0 {
		return
	}
	raw, err := json.Marshal(movies)
	if err != nil {
		return
	}
	if err := g.cache.Set(ctx, req.CacheKey(), raw, g.cacheTTL); err != nil {
		logging.Warnf("gateway: cache set: %v", err)
	}
}
