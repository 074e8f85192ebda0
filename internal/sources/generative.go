package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/RobinCoderZhao/solana-news/internal/news"
	"github.com/RobinCoderZhao/solana-news/pkg/llm"
)

const newsSystemPrompt = "You are a crypto news AI. Generate Solana news updates in JSON format."

const newsUserPrompt = `
Generate %d latest Solana news updates in JSON format.
Each news should include:
- title
- content (2-3 sentences)
- source_url
- event_date (YYYY-MM-DD)
Return ONLY a valid JSON array, no extra text or formatting.
`

const extractPrompt = `Extract Solana opportunities from these search results in JSON array format:
[
  {
    "project_name": "...",
    "token_symbol": "...",
    "event_type": "New Token Launch | Airdrop | Exchange Listing",
    "source_url": "...",
    "short_description": "...",
    "event_date": "YYYY-MM-DD"
  }
]
Return ONLY a valid JSON array, no extra text or formatting.
Search results: %s
`

// Option configures an LLM-backed source.
type Option func(*llmSource)

// WithObserver reports token usage and cost to o.
func WithObserver(o Observer) Option {
	return func(s *llmSource) {
		if o != nil {
			s.observer = o
		}
	}
}

// llmSource holds what the generative and extraction sources share.
type llmSource struct {
	client   llm.Client
	observer Observer
	logger   *slog.Logger
}

func newLLMSource(client llm.Client, opts []Option) llmSource {
	s := llmSource{client: client, observer: nopObserver{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// complete sends req and parses the reply as a record array.
func (s *llmSource) complete(ctx context.Context, req *llm.Request) ([]news.Record, error) {
	resp, err := s.client.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	s.observer.LLMUsage(resp.Model, resp.TokensIn, resp.TokensOut, resp.Cost)
	s.logger.Debug("LLM raw output", "provider", s.client.Provider(), "content", resp.Content, "latency_ms", resp.LatencyMs)

	parsed := news.ParseGenerated(resp.Content)
	if !parsed.OK() {
		s.logger.Error("failed to parse LLM output as JSON", "provider", s.client.Provider(), "error", parsed.Err)
		return parsed.Records, fmt.Errorf("normalize %s output: %w", s.client.Provider(), parsed.Err)
	}
	return parsed.Records, nil
}

// GenerativeSource asks the LLM to write the latest Solana news directly.
type GenerativeSource struct {
	llmSource
	count int
}

// NewGenerativeSource creates a source requesting count news items.
func NewGenerativeSource(client llm.Client, count int, opts ...Option) *GenerativeSource {
	if count <= 0 {
		count = 3
	}
	return &GenerativeSource{llmSource: newLLMSource(client, opts), count: count}
}

func (g *GenerativeSource) Name() string { return string(g.client.Provider()) }

func (g *GenerativeSource) Fetch(ctx context.Context) ([]news.Record, error) {
	return g.complete(ctx, &llm.Request{Messages: []llm.Message{
		{Role: "system", Content: newsSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(newsUserPrompt, g.count)},
	}})
}

// ExtractSource searches for each query and has the LLM extract structured
// opportunities from the search results.
type ExtractSource struct {
	llmSource
	search *SerpClient
}

// NewExtractSource pairs a search client with an LLM extractor.
func NewExtractSource(search *SerpClient, client llm.Client, opts ...Option) *ExtractSource {
	return &ExtractSource{llmSource: newLLMSource(client, opts), search: search}
}

func (e *ExtractSource) Query(ctx context.Context, query string) ([]news.Record, error) {
	start := time.Now()
	resp, err := e.search.Search(ctx, query)
	e.observer.ProviderCall("serpapi", len(resp.itemsOrNil()), err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	items := resp.Items()
	if len(items) == 0 {
		return []news.Record{}, nil
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal search results: %w", err)
	}
	// extraction should be deterministic; generation keeps the client default
	return e.complete(ctx, &llm.Request{
		Messages:    []llm.Message{{Role: "user", Content: fmt.Sprintf(extractPrompt, raw)}},
		Temperature: llm.Float(0),
	})
}

func (r *SearchResponse) itemsOrNil() []news.SearchItem {
	if r == nil {
		return nil
	}
	return r.Items()
}
