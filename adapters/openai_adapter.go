// adapters/openai_adapter.go
// --------------------------
// Recommendation provider backed by an OpenAI-compatible chat completion
// API. The aggregate path asks for a JSON array of movies; the streaming
// path maps completion deltas onto domain events line by line: lines that
// parse as movie JSON become movie events, everything else is commentary
// text.
//
// Outbound calls are paced with a client-side rate.Limiter so a burst of
// admitted requests cannot trip the upstream's own limits. When the
// upstream sits behind an OAuth gateway, a client-credentials token source
// supplies the bearer token instead of a static API key.
package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	cinebridge "github.com/cinebridge/cine-bridge"
	"github.com/cinebridge/cine-bridge/internal/logging"
)

const (
	OpenAIDefaultModel             = "gpt-4o-mini"
	OpenAIDefaultRequestsPerMinute = 60
	openAIDefaultLimit             = 5
)

const systemPrompt = `You are a movie recommendation engine. Respond with one short ` +
	`introductory sentence, then one movie per line as a compact JSON object with ` +
	`fields: title, year, genres, runtimeMinutes, rating, summary. No markdown fences.`

// OAuthSettings configures client-credentials auth for gatewayed upstreams.
type OAuthSettings struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
}

// OpenAIConfig configures an OpenAIProvider.
type OpenAIConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	RequestsPerMinute int
	OAuth             *OAuthSettings
}

type OpenAIProvider struct {
	client openai.Client
	model  string
	pacer  *rate.Limiter
}

func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.Model == "" {
		cfg.Model = OpenAIDefaultModel
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = OpenAIDefaultRequestsPerMinute
	}

	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.OAuth != nil {
		cc := clientcredentials.Config{
			TokenURL:     cfg.OAuth.TokenURL,
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
		}
		opts = append(opts, option.WithHTTPClient(cc.Client(context.Background())))
	}

	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		pacer:  rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute),
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) params(req *cinebridge.RecommendationRequest) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildPrompt(req)),
		},
	}
}

func (p *OpenAIProvider) GetRecommendations(ctx context.Context, req *cinebridge.RecommendationRequest) ([]cinebridge.MovieRecord, error) {
	if err := p.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := p.client.Chat.Completions.New(ctx, p.params(req))
	if err != nil {
		return nil, cinebridge.Classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, cinebridge.NewAgentError("model returned no choices", true)
	}

	movies := parseMovieLines(resp.Choices[0].Message.Content)
	if len(movies) == 0 {
		return nil, cinebridge.NewAgentError("model response contained no parseable movies", false)
	}
	return movies, nil
}

func (p *OpenAIProvider) GetRecommendationsStream(ctx context.Context, req *cinebridge.RecommendationRequest) (<-chan cinebridge.StreamEvent, error) {
	if err := p.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, p.params(req))

	events := make(chan cinebridge.StreamEvent)
	go func() {
		defer close(events)
		defer func() {
			if err := stream.Close(); err != nil {
				logging.Debugf("openai adapter: stream close: %v", err)
			}
		}()

		var buf strings.Builder
		flushLine := func(line string) bool {
			line = strings.TrimSpace(line)
			if line == "" {
				return true
			}
			if strings.HasPrefix(line, "{") {
				var m cinebridge.MovieRecord
				if err := json.Unmarshal([]byte(line), &m); err == nil && m.Title != "" {
					return sendEvent(ctx, events, cinebridge.MovieEvent(m))
				}
			}
			return sendEvent(ctx, events, cinebridge.TextEvent(line))
		}

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			buf.WriteString(chunk.Choices[0].Delta.Content)

			// Forward every completed line; keep the partial tail buffered.
			content := buf.String()
			for {
				idx := strings.IndexByte(content, '\n')
				if idx < 0 {
					break
				}
				if !flushLine(content[:idx]) {
					return
				}
				content = content[idx+1:]
			}
			buf.Reset()
			buf.WriteString(content)
		}

		if err := stream.Err(); err != nil {
			sendEvent(ctx, events, cinebridge.ErrorEvent(cinebridge.Classify(err)))
			return
		}
		flushLine(buf.String())
	}()
	return events, nil
}

func sendEvent(ctx context.Context, ch chan<- cinebridge.StreamEvent, ev cinebridge.StreamEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func buildPrompt(req *cinebridge.RecommendationRequest) string {
	limit := req.Limit
	if limit <= 0 {
		limit = openAIDefaultLimit
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recommend %d movies.", limit)
	if len(req.Genres) > 0 {
		fmt.Fprintf(&b, " Genres: %s.", strings.Join(req.Genres, ", "))
	}
	if len(req.Moods) > 0 {
		fmt.Fprintf(&b, " Mood: %s.", strings.Join(req.Moods, ", "))
	}
	if rt := req.Runtime; rt != nil {
		fmt.Fprintf(&b, " Runtime between %d and %d minutes.", rt.Min, rt.Max)
	}
	if yr := req.ReleaseYear; yr != nil {
		fmt.Fprintf(&b, " Released between %d and %d.", yr.From, yr.To)
	}
	return b.String()
}

// parseMovieLines extracts movie records from a full completion, tolerating
// surrounding prose and accidental code fences.
func parseMovieLines(content string) []cinebridge.MovieRecord {
	var movies []cinebridge.MovieRecord
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "`"))
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var m cinebridge.MovieRecord
		if err := json.Unmarshal([]byte(line), &m); err == nil && m.Title != "" {
			movies = append(movies, m)
		}
	}
	return movies
}
