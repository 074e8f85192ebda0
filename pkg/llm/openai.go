package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// openaiClient talks to any OpenAI-compatible chat completions endpoint.
// It serves both OpenAI itself and Gemini's compatibility layer.
type openaiClient struct {
	cfg      Config
	http     *http.Client
	provider Provider
	base     string
}

func newOpenAIClient(cfg Config, provider Provider, defaultBase string) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", provider)
	}
	base := defaultBase
	if cfg.BaseURL != "" {
		base = cfg.BaseURL
	}
	return &openaiClient{
		cfg:      cfg,
		provider: provider,
		base:     strings.TrimRight(base, "/"),
		http:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Model string `json:"model"`
}

// Gemini's compatibility layer wraps errors in a one-element array; OpenAI does not.
type chatError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *openaiClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   pickMaxTokens(req, c.cfg),
		Temperature: pickTemperature(req, c.cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", transportError(err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &APIError{Provider: c.provider, StatusCode: httpResp.StatusCode, Message: errorMessage(respBody)}
	}

	var cResp chatResponse
	if err := json.Unmarshal(respBody, &cResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(cResp.Choices) == 0 || cResp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("no content in %s response", c.provider)
	}

	model := cResp.Model
	if model == "" {
		model = c.cfg.Model
	}
	return &Response{
		Content:      cResp.Choices[0].Message.Content,
		FinishReason: cResp.Choices[0].FinishReason,
		TokensIn:     cResp.Usage.PromptTokens,
		TokensOut:    cResp.Usage.CompletionTokens,
		Cost:         EstimateCost(model, cResp.Usage.PromptTokens, cResp.Usage.CompletionTokens),
		Model:        model,
		LatencyMs:    time.Since(start).Milliseconds(),
	}, nil
}

func (c *openaiClient) Provider() Provider { return c.provider }
func (c *openaiClient) Close() error       { return nil }

func errorMessage(body []byte) string {
	var single chatError
	if err := json.Unmarshal(body, &single); err == nil && single.Error.Message != "" {
		return single.Error.Message
	}
	var list []chatError
	if err := json.Unmarshal(body, &list); err == nil && len(list) > 0 && list[0].Error.Message != "" {
		return list[0].Error.Message
	}
	return strings.TrimSpace(string(body))
}
