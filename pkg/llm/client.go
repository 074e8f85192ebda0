// Package llm provides a small interface over chat-completion style LLM APIs.
// Gemini is reached through its OpenAI-compatible endpoint by default; the
// native generateContent API and plain OpenAI are available as well.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Provider represents an LLM provider.
type Provider string

const (
	OpenAI       Provider = "openai"
	Gemini       Provider = "gemini"
	GeminiNative Provider = "gemini-native"
)

// GeminiOpenAIBase is Google's OpenAI-compatible surface for Gemini models.
const GeminiOpenAIBase = "https://generativelanguage.googleapis.com/v1beta/openai"

// Config holds configuration for an LLM client.
type Config struct {
	Provider    Provider      `yaml:"provider" json:"provider"`
	Model       string        `yaml:"model" json:"model"`
	APIKey      string        `yaml:"api_key" json:"api_key"`
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens"`
	Temperature float64       `yaml:"temperature" json:"temperature"`
}

// DefaultConfig returns the Gemini 2.5 Flash setup the news generator uses.
func DefaultConfig() Config {
	return Config{
		Provider:    Gemini,
		Model:       "gemini-2.5-flash",
		Timeout:     60 * time.Second,
		Temperature: 0.7,
	}
}

// Client is the unified interface for LLM interactions.
type Client interface {
	// Generate sends a prompt and returns the LLM response.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Provider returns the name of the provider.
	Provider() Provider

	// Close releases any resources held by the client.
	Close() error
}

// Message represents a single message in a conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Request holds the parameters for an LLM generation request.
type Request struct {
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"` // nil uses Config.Temperature
}

// Response holds the result of an LLM generation.
type Response struct {
	Content      string  `json:"content"`
	FinishReason string  `json:"finish_reason,omitempty"`
	TokensIn     int     `json:"tokens_in"`
	TokensOut    int     `json:"tokens_out"`
	Cost         float64 `json:"cost"`
	Model        string  `json:"model"`
	LatencyMs    int64   `json:"latency_ms"`
}

// APIError is returned when the provider answers with a non-2xx status.
type APIError struct {
	Provider   Provider
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Message)
}

// NewClient creates a new LLM client based on the provided config.
func NewClient(cfg Config) (Client, error) {
	switch cfg.Provider {
	case OpenAI:
		return newOpenAIClient(cfg, OpenAI, "https://api.openai.com/v1")
	case Gemini, "":
		return newOpenAIClient(cfg, Gemini, GeminiOpenAIBase)
	case GeminiNative:
		return newGeminiClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// Float returns a pointer to v, for Request.Temperature.
func Float(v float64) *float64 { return &v }

// pickTemperature prefers the per-request value over the client default.
// An explicit zero is kept.
func pickTemperature(req *Request, cfg Config) *float64 {
	if req.Temperature != nil {
		return Float(*req.Temperature)
	}
	return Float(cfg.Temperature)
}

// transportError drops the request URL from a failed round trip. Some
// endpoints carry the API key in the query string.
func transportError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s request: %w", ue.Op, ue.Err)
	}
	return err
}

func pickMaxTokens(req *Request, cfg Config) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return cfg.MaxTokens
}
