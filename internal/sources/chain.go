package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/RobinCoderZhao/solana-news/internal/news"
)

// Chain tries its sources in registration order and stops at the first one
// that returns a non-empty result.
type Chain struct {
	sources  []Source
	logger   *slog.Logger
	observer Observer
}

// NewChain creates a chain over the given sources, highest priority first.
func NewChain(srcs ...Source) *Chain {
	return &Chain{
		sources:  srcs,
		logger:   slog.Default(),
		observer: nopObserver{},
	}
}

// Register appends a lower-priority source.
func (c *Chain) Register(s Source) {
	c.sources = append(c.sources, s)
}

// SetObserver attaches an observer for provider outcomes.
func (c *Chain) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	c.observer = o
}

// Names lists the sources in priority order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.sources))
	for i, s := range c.sources {
		names[i] = s.Name()
	}
	return names
}

// Fetch runs the fallback. On exhaustion it returns an empty result and an
// error wrapping ErrNoResults together with each provider's failure.
func (c *Chain) Fetch(ctx context.Context) (Result, error) {
	errs := []error{ErrNoResults}
	for _, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return Result{Records: []news.Record{}}, err
		}

		start := time.Now()
		records, err := src.Fetch(ctx)
		c.observer.ProviderCall(src.Name(), len(records), err, time.Since(start))

		switch {
		case err != nil:
			c.logger.Warn("provider failed, trying next", "provider", src.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
		case len(records) == 0:
			c.logger.Warn("provider returned no records, trying next", "provider", src.Name())
			errs = append(errs, fmt.Errorf("%s: empty result", src.Name()))
		default:
			c.logger.Info("provider returned records", "provider", src.Name(), "count", len(records), "duration", time.Since(start))
			return Result{Provider: src.Name(), Records: records}, nil
		}
	}
	return Result{Records: []news.Record{}}, errors.Join(errs...)
}

// Querier answers a single query.
type Querier interface {
	Query(ctx context.Context, query string) ([]news.Record, error)
}

// MultiQuery repeats one provider call per query and concatenates the
// results in query order. A failed query contributes nothing.
type MultiQuery struct {
	name    string
	queries []string
	q       Querier
	logger  *slog.Logger
}

// NewMultiQuery creates a source that runs q once per query.
func NewMultiQuery(name string, queries []string, q Querier) *MultiQuery {
	return &MultiQuery{name: name, queries: queries, q: q, logger: slog.Default()}
}

func (m *MultiQuery) Name() string { return m.name }

func (m *MultiQuery) Fetch(ctx context.Context) ([]news.Record, error) {
	all := []news.Record{}
	var errs []error
	for _, query := range m.queries {
		records, err := m.q.Query(ctx, query)
		if err != nil {
			m.logger.Warn("query failed", "source", m.name, "query", query, "error", err)
			errs = append(errs, fmt.Errorf("query %q: %w", query, err))
			continue
		}
		all = append(all, records...)
	}
	if len(all) == 0 && len(errs) > 0 {
		return all, errors.Join(errs...)
	}
	return all, nil
}
