package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/RobinCoderZhao/solana-news/internal/news"
)

// SearchOptions configures the SerpAPI client.
type SearchOptions struct {
	APIKey   string        `yaml:"api_key" env:"SERP_API_KEY"`
	BaseURL  string        `yaml:"base_url" env:"SERP_BASE_URL"`
	Engine   string        `yaml:"engine"`
	Recency  string        `yaml:"recency" env:"SERP_RECENCY"` // d, w, m or y; empty disables the filter
	Num      int           `yaml:"num"`
	Category string        `yaml:"category"` // "nws" for the news tab
	Timeout  time.Duration `yaml:"timeout"`
}

// DefaultSearchOptions searches Google restricted to the last day.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		BaseURL: "https://serpapi.com",
		Engine:  "google",
		Recency: "d",
		Timeout: 30 * time.Second,
	}
}

// StatusError is returned when a provider answers with a non-2xx status.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// SearchResponse is the subset of a SerpAPI response we read.
type SearchResponse struct {
	OrganicResults []news.SearchItem `json:"organic_results"`
	NewsResults    []news.SearchItem `json:"news_results"`
	Error          string            `json:"error"`
}

// Items returns organic results followed by news-tab results.
func (r *SearchResponse) Items() []news.SearchItem {
	items := make([]news.SearchItem, 0, len(r.OrganicResults)+len(r.NewsResults))
	items = append(items, r.OrganicResults...)
	return append(items, r.NewsResults...)
}

// SerpClient performs Google searches through SerpAPI.
type SerpClient struct {
	opts SearchOptions
	http *http.Client
}

// NewSerpClient creates a SerpAPI client.
func NewSerpClient(opts SearchOptions) (*SerpClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("SerpAPI key is required")
	}
	def := DefaultSearchOptions()
	if opts.BaseURL == "" {
		opts.BaseURL = def.BaseURL
	}
	if opts.Engine == "" {
		opts.Engine = def.Engine
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &SerpClient{
		opts: opts,
		http: &http.Client{Timeout: opts.Timeout},
	}, nil
}

// Search runs one query. A "no results" answer is an empty response, not an error.
func (c *SerpClient) Search(ctx context.Context, query string) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("engine", c.opts.Engine)
	params.Set("api_key", c.opts.APIKey)
	if c.opts.Recency != "" {
		params.Set("tbs", "qdr:"+c.opts.Recency)
	}
	if c.opts.Num > 0 {
		params.Set("num", strconv.Itoa(c.opts.Num))
	}
	if c.opts.Category != "" {
		params.Set("tbm", c.opts.Category)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		// the URL carries api_key; keep only the underlying cause
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var out SearchResponse
	jsonErr := json.Unmarshal(body, &out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := out.Error
		if jsonErr != nil || msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return nil, &StatusError{Provider: "serpapi", StatusCode: resp.StatusCode, Body: msg}
	}
	if jsonErr != nil {
		return nil, fmt.Errorf("unmarshal response: %w", jsonErr)
	}
	if out.Error != "" {
		if strings.Contains(out.Error, "hasn't returned any results") {
			return &SearchResponse{}, nil
		}
		return nil, fmt.Errorf("serpapi: %s", out.Error)
	}
	return &out, nil
}

// SearchSource serves normalized search results, one query at a time.
type SearchSource struct {
	client *SerpClient
	now    func() time.Time
}

// NewSearchSource wraps a SerpAPI client as a Querier.
func NewSearchSource(client *SerpClient) *SearchSource {
	return &SearchSource{client: client, now: time.Now}
}

func (s *SearchSource) Query(ctx context.Context, query string) ([]news.Record, error) {
	resp, err := s.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return news.FromSearch(resp.Items(), s.now()), nil
}
