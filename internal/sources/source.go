// Package sources defines the news providers and the fallback chain that
// picks the first provider with usable output.
package sources

import (
	"context"
	"errors"
	"time"

	"github.com/RobinCoderZhao/solana-news/internal/news"
)

// Source is the interface that all news providers implement.
type Source interface {
	// Name returns the provider name used in logs and metrics.
	Name() string

	// Fetch performs the provider call(s) and returns normalized records.
	Fetch(ctx context.Context) ([]news.Record, error)
}

// Observer receives provider call outcomes. It is implemented by the metrics package.
type Observer interface {
	ProviderCall(provider string, records int, err error, elapsed time.Duration)
	LLMUsage(model string, tokensIn, tokensOut int, cost float64)
}

type nopObserver struct{}

func (nopObserver) ProviderCall(string, int, error, time.Duration) {}
func (nopObserver) LLMUsage(string, int, int, float64)             {}

// ErrNoResults is returned by a chain when every provider failed or came back empty.
var ErrNoResults = errors.New("no provider returned results")

// Result is the output of a chain run.
type Result struct {
	Provider string
	Records  []news.Record
}
